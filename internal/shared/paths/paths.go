package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the data directory created under the user's home
const DirName = ".krillbrowser"

// Files inside the data directory
const (
	BlocklistFile = "blocklist.txt"
	StateFile     = "state.json"
	ProfilesFile  = "profiles.yaml"
)

// Layout resolves files inside one data directory
type Layout struct {
	Root string
}

// Resolve returns the layout rooted at dir, or at ~/.krillbrowser when dir
// is empty.
func Resolve(dir string) (Layout, error) {
	if dir != "" {
		return Layout{Root: filepath.Clean(dir)}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Layout{}, fmt.Errorf("resolve home directory: %w", err)
	}
	return Layout{Root: filepath.Join(home, DirName)}, nil
}

// Blocklist returns the custom blocklist path
func (l Layout) Blocklist() string {
	return filepath.Join(l.Root, BlocklistFile)
}

// State returns the state snapshot path
func (l Layout) State() string {
	return filepath.Join(l.Root, StateFile)
}

// Profiles returns the default profile override path
func (l Layout) Profiles() string {
	return filepath.Join(l.Root, ProfilesFile)
}

// Ensure creates the root directory if missing
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Root, 0o700); err != nil {
		return fmt.Errorf("create data directory %s: %w", l.Root, err)
	}
	return nil
}
