package engine

import (
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
)

// Toggles are the global switches shared by every evaluation.
type Toggles struct {
	ForceHTTPS             bool `json:"force_https"`
	HTTPSOnly              bool `json:"https_only"`
	PrivateMode            bool `json:"private_mode"`
	ClearOnExit            bool `json:"clear_on_exit"`
	BlockTrackers          bool `json:"block_trackers"`
	BlockAds               bool `json:"block_ads"`
	JavaScriptEnabled      bool `json:"javascript_enabled"`
	BlockReferrer          bool `json:"block_referrer"`
	SendDoNotTrack         bool `json:"send_do_not_track"`
	BlockThirdPartyCookies bool `json:"block_third_party_cookies"`
}

// DefaultToggles returns the out-of-the-box switch positions
func DefaultToggles() Toggles {
	return Toggles{
		ForceHTTPS:             true,
		BlockTrackers:          true,
		BlockAds:               true,
		JavaScriptEnabled:      true,
		BlockReferrer:          true,
		SendDoNotTrack:         true,
		BlockThirdPartyCookies: true,
	}
}

// applyProfile copies every profile-owned switch in one step.
func (t *Toggles) applyProfile(s profile.Settings) {
	t.BlockTrackers = s.BlockTrackers
	t.BlockAds = s.BlockAds
	t.JavaScriptEnabled = s.JavaScriptEnabled
	t.HTTPSOnly = s.HTTPSOnly
	t.BlockReferrer = s.BlockReferrer
	t.ForceHTTPS = s.ForceHTTPS
}

// TogglePatch is a partial update; nil fields are left unchanged.
type TogglePatch struct {
	ForceHTTPS             *bool `json:"force_https,omitempty"`
	HTTPSOnly              *bool `json:"https_only,omitempty"`
	PrivateMode            *bool `json:"private_mode,omitempty"`
	ClearOnExit            *bool `json:"clear_on_exit,omitempty"`
	BlockTrackers          *bool `json:"block_trackers,omitempty"`
	BlockAds               *bool `json:"block_ads,omitempty"`
	JavaScriptEnabled      *bool `json:"javascript_enabled,omitempty"`
	BlockReferrer          *bool `json:"block_referrer,omitempty"`
	SendDoNotTrack         *bool `json:"send_do_not_track,omitempty"`
	BlockThirdPartyCookies *bool `json:"block_third_party_cookies,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p TogglePatch) Empty() bool {
	return p == TogglePatch{}
}

func (p TogglePatch) applyTo(t *Toggles) {
	set(&t.ForceHTTPS, p.ForceHTTPS)
	set(&t.HTTPSOnly, p.HTTPSOnly)
	set(&t.PrivateMode, p.PrivateMode)
	set(&t.ClearOnExit, p.ClearOnExit)
	set(&t.BlockTrackers, p.BlockTrackers)
	set(&t.BlockAds, p.BlockAds)
	set(&t.JavaScriptEnabled, p.JavaScriptEnabled)
	set(&t.BlockReferrer, p.BlockReferrer)
	set(&t.SendDoNotTrack, p.SendDoNotTrack)
	set(&t.BlockThirdPartyCookies, p.BlockThirdPartyCookies)
}

func set(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Snapshot is the persistable part of the engine state
type Snapshot struct {
	Profile         profile.ID                   `json:"profile"`
	Toggles         Toggles                      `json:"toggles"`
	CustomBlocklist []string                     `json:"custom_blocklist,omitempty"`
	CustomPhishing  []string                     `json:"custom_phishing,omitempty"`
	ProfileSites    map[profile.ID]profile.Sites `json:"profile_sites,omitempty"`

	seq uint64
}

// Stats are cumulative counters since startup
type Stats struct {
	Evaluations        uint64 `json:"evaluations"`
	Allowed            uint64 `json:"allowed"`
	Rewritten          uint64 `json:"rewritten"`
	Blocked            uint64 `json:"blocked"`
	HTTPSOnlyBlocks    uint64 `json:"https_only_blocks"`
	ProfileBlocks      uint64 `json:"profile_blocks"`
	TrackersBlocked    uint64 `json:"trackers_blocked"`
	PhishingBlocked    uint64 `json:"phishing_blocked"`
	PhishingWarnings   uint64 `json:"phishing_warnings"`
	HTTPSUpgrades      uint64 `json:"https_upgrades"`
	ParamsStripped     uint64 `json:"params_stripped"`
	DownloadsChecked   uint64 `json:"downloads_checked"`
	DangerousDownloads uint64 `json:"dangerous_downloads"`
	ProfileSwitches    uint64 `json:"profile_switches"`
	PanicClears        uint64 `json:"panic_clears"`
}
