// Package paths defines the on-disk layout of the policy daemon.
//
// # Directory Structure
//
//	~/.krillbrowser/
//	  ├── blocklist.txt   (custom blocked domains, one per line)
//	  ├── state.json      (active profile and toggles)
//	  └── profiles.yaml   (optional profile overrides)
//
// # Usage
//
//	layout, err := paths.Resolve(cfg.Policy.DataDir)
//	if err != nil {
//	    return err
//	}
//	entries, err := blocklist.LoadFile(layout.Blocklist())
package paths
