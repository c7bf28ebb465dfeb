package http

import (
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
)

// URLRequest carries a navigation target or address-bar input
type URLRequest struct {
	URL string `json:"url" binding:"required"`
}

// DownloadRequest describes a download. Content is the base64 encoded head
// of the file and is only used by the inspect endpoint.
type DownloadRequest struct {
	Filename string `json:"filename" binding:"required"`
	Content  []byte `json:"content"`
}

// DomainRequest adds a domain to a list
type DomainRequest struct {
	Domain string `json:"domain" binding:"required"`
}

// ProfileRequest selects the active profile
type ProfileRequest struct {
	Profile string `json:"profile" binding:"required"`
}

// SiteRequest extends a profile's site lists
type SiteRequest struct {
	Site  string `json:"site" binding:"required"`
	Allow bool   `json:"allow"`
}

// ToggleRequest is a partial toggle update
type ToggleRequest = engine.TogglePatch
