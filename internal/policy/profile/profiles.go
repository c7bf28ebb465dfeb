// Package profile defines the browsing profiles and their site policies.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ID names a browsing profile
type ID string

const (
	Default ID = "default"
	Gaming  ID = "gaming"
	Work    ID = "work"
	Coding  ID = "coding"
	Secure  ID = "secure"
)

// ErrUnknownProfile is returned for ids outside the profile table
var ErrUnknownProfile = errors.New("unknown profile")

// DefaultBlockMessage is shown when a profile has no message of its own.
const DefaultBlockMessage = "This site is blocked by your current profile."

// Settings is the full policy record for one profile. AllowedSites is nil
// when the profile has no allow list.
type Settings struct {
	ID                ID       `json:"id"`
	DisplayName       string   `json:"display_name"`
	Description       string   `json:"description"`
	BlockMessage      string   `json:"block_message"`
	BlockTrackers     bool     `json:"block_trackers"`
	BlockAds          bool     `json:"block_ads"`
	ForceHTTPS        bool     `json:"force_https"`
	HTTPSOnly         bool     `json:"https_only"`
	JavaScriptEnabled bool     `json:"javascript_enabled"`
	BlockReferrer     bool     `json:"block_referrer"`
	PerformanceMode   bool     `json:"performance_mode"`
	DeveloperMode     bool     `json:"developer_mode"`
	BlockedSites      []string `json:"blocked_sites"`
	AllowedSites      []string `json:"allowed_sites,omitempty"`
}

// clone returns a deep copy so callers never alias store state.
func (s Settings) clone() Settings {
	s.BlockedSites = append([]string(nil), s.BlockedSites...)
	if s.AllowedSites != nil {
		s.AllowedSites = append([]string{}, s.AllowedSites...)
	}
	if s.BlockedSites == nil {
		s.BlockedSites = []string{}
	}
	return s
}

// table is the single source of profile definitions, in display order.
var table = []Settings{
	{
		ID:                Default,
		DisplayName:       "Default",
		Description:       "Balanced browsing experience",
		BlockMessage:      DefaultBlockMessage,
		BlockTrackers:     true,
		BlockAds:          true,
		ForceHTTPS:        true,
		JavaScriptEnabled: true,
	},
	{
		ID:                Gaming,
		DisplayName:       "Gaming",
		Description:       "Performance mode - minimal distractions",
		BlockMessage:      "Gaming Mode: This site is blocked to minimize distractions. Focus on your game!",
		BlockTrackers:     true,
		BlockAds:          true,
		ForceHTTPS:        true,
		JavaScriptEnabled: true,
		PerformanceMode:   true,
		BlockedSites: []string{
			"facebook.com", "twitter.com", "instagram.com", "tiktok.com",
			"reddit.com", "news.ycombinator.com", "linkedin.com",
		},
	},
	{
		ID:                Work,
		DisplayName:       "Work",
		Description:       "Productivity focused - blocks social media",
		BlockMessage:      "Work Mode: This site is blocked for productivity. Get back to work!",
		BlockTrackers:     true,
		BlockAds:          true,
		ForceHTTPS:        true,
		JavaScriptEnabled: true,
		BlockedSites: []string{
			"youtube.com", "twitch.tv", "netflix.com", "reddit.com",
			"tiktok.com", "instagram.com", "twitter.com", "discord.com",
			"steampowered.com", "epicgames.com",
		},
	},
	{
		ID:                Coding,
		DisplayName:       "Coding",
		Description:       "Developer mode - allows localhost, relaxed security",
		BlockMessage:      DefaultBlockMessage,
		BlockAds:          true,
		JavaScriptEnabled: true,
		DeveloperMode:     true,
		AllowedSites: []string{
			"localhost", "127.0.0.1", "github.com", "stackoverflow.com",
			"developer.mozilla.org", "docs.oracle.com",
		},
	},
	{
		ID:            Secure,
		DisplayName:   "Secure",
		Description:   "Maximum privacy - blocks everything",
		BlockMessage:  "Secure Mode: This site is blocked for security reasons.",
		BlockTrackers: true,
		BlockAds:      true,
		ForceHTTPS:    true,
		HTTPSOnly:     true,
		BlockReferrer: true,
	},
}

// IDs returns every profile id in display order
func IDs() []ID {
	ids := make([]ID, 0, len(table))
	for _, s := range table {
		ids = append(ids, s.ID)
	}
	return ids
}

// ParseID resolves a case-insensitive profile name
func ParseID(name string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range table {
		if s.ID == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}
