package profile

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pelletier/go-toml/v2"
)

// textPolicy strips markup from override text. The result is unescaped
// again so values stay plain text for the shell to render.
var textPolicy = bluemonday.StrictPolicy()

// Override adjusts one profile. Nil fields leave the built-in value alone;
// site lists are appended.
type Override struct {
	DisplayName       *string  `yaml:"display_name" toml:"display_name"`
	Description       *string  `yaml:"description" toml:"description"`
	BlockMessage      *string  `yaml:"block_message" toml:"block_message"`
	BlockTrackers     *bool    `yaml:"block_trackers" toml:"block_trackers"`
	BlockAds          *bool    `yaml:"block_ads" toml:"block_ads"`
	ForceHTTPS        *bool    `yaml:"force_https" toml:"force_https"`
	HTTPSOnly         *bool    `yaml:"https_only" toml:"https_only"`
	JavaScriptEnabled *bool    `yaml:"javascript_enabled" toml:"javascript_enabled"`
	BlockReferrer     *bool    `yaml:"block_referrer" toml:"block_referrer"`
	PerformanceMode   *bool    `yaml:"performance_mode" toml:"performance_mode"`
	DeveloperMode     *bool    `yaml:"developer_mode" toml:"developer_mode"`
	BlockedSites      []string `yaml:"blocked_sites" toml:"blocked_sites"`
	AllowedSites      []string `yaml:"allowed_sites" toml:"allowed_sites"`
}

// Overrides is the on-disk profile override document
type Overrides struct {
	Profiles map[string]Override `yaml:"profiles" toml:"profiles"`
}

// ParseOverrides decodes data as YAML or TOML depending on format
// ("yaml", "yml" or "toml").
func ParseOverrides(data []byte, format string) (Overrides, error) {
	var ov Overrides

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &ov); err != nil {
			return Overrides{}, fmt.Errorf("failed to parse YAML overrides: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &ov); err != nil {
			return Overrides{}, fmt.Errorf("failed to parse TOML overrides: %w", err)
		}
	default:
		return Overrides{}, fmt.Errorf("unsupported override format %q", format)
	}
	return ov, nil
}

// LoadOverrides reads an override file, choosing the decoder by extension.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("failed to read overrides: %w", err)
	}
	return ParseOverrides(data, filepath.Ext(path))
}

// Apply merges ov into the store. Unknown profile names fail the whole
// document before anything is changed.
func (s *Store) Apply(ov Overrides) error {
	resolved := make(map[ID]Override, len(ov.Profiles))
	for name, o := range ov.Profiles {
		id, err := ParseID(name)
		if err != nil {
			return fmt.Errorf("apply overrides: %w", err)
		}
		resolved[id] = o
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range resolved {
		o.applyTo(s.settings[id])
	}
	return nil
}

func (o Override) applyTo(dst *Settings) {
	setText(&dst.DisplayName, o.DisplayName)
	setText(&dst.Description, o.Description)
	setText(&dst.BlockMessage, o.BlockMessage)
	setBool(&dst.BlockTrackers, o.BlockTrackers)
	setBool(&dst.BlockAds, o.BlockAds)
	setBool(&dst.ForceHTTPS, o.ForceHTTPS)
	setBool(&dst.HTTPSOnly, o.HTTPSOnly)
	setBool(&dst.JavaScriptEnabled, o.JavaScriptEnabled)
	setBool(&dst.BlockReferrer, o.BlockReferrer)
	setBool(&dst.PerformanceMode, o.PerformanceMode)
	setBool(&dst.DeveloperMode, o.DeveloperMode)

	for _, site := range o.BlockedSites {
		if site = strings.ToLower(strings.TrimSpace(site)); site != "" {
			dst.BlockedSites = appendUnique(dst.BlockedSites, site)
		}
	}
	for _, site := range o.AllowedSites {
		if site = strings.ToLower(strings.TrimSpace(site)); site != "" {
			dst.AllowedSites = appendUnique(dst.AllowedSites, site)
		}
	}
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(*v)))
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
