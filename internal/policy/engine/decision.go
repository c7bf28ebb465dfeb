package engine

import (
	"github.com/BigJoe84g/Krill-Browser/internal/policy/phishing"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
)

// Action is the outcome of an evaluation
type Action string

const (
	ActionAllow   Action = "allow"
	ActionRewrite Action = "rewrite"
	ActionBlock   Action = "block"
)

// Category names the stage that produced a block
type Category string

const (
	CategoryNone      Category = ""
	CategoryHTTPSOnly Category = "https-only"
	CategoryProfile   Category = "profile"
	CategoryBlocklist Category = "blocklist"
	CategoryPhishing  Category = "phishing"
)

// Reasons reported to the browser shell
const (
	ReasonHTTPSOnly = "HTTPS-only mode"
	ReasonTracker   = "tracker/malware"
)

// Decision is the result of Evaluate. URL is the navigation target after
// normalization and rewriting; for blocks it is the URL that was refused.
type Decision struct {
	ID             string            `json:"id"`
	Action         Action            `json:"action"`
	URL            string            `json:"url"`
	Original       string            `json:"original"`
	Reason         string            `json:"reason,omitempty"`
	Category       Category          `json:"category,omitempty"`
	Match          string            `json:"match,omitempty"`
	Profile        profile.ID        `json:"profile"`
	Upgraded       bool              `json:"upgraded,omitempty"`
	ParamsStripped int               `json:"params_stripped,omitempty"`
	Phishing       *phishing.Verdict `json:"phishing,omitempty"`
}

// Blocked reports whether navigation must not proceed
func (d Decision) Blocked() bool {
	return d.Action == ActionBlock
}

// Level classifies a URL for the security indicator
type Level string

const (
	LevelSecure    Level = "secure"
	LevelInsecure  Level = "insecure"
	LevelDangerous Level = "dangerous"
	LevelUnknown   Level = "unknown"
)

// Referrer policies handed to the rendering engine
const (
	ReferrerNone         = "no-referrer"
	ReferrerStrictOrigin = "strict-origin-when-cross-origin"
)
