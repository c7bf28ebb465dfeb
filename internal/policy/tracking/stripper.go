// Package tracking removes tracking parameters from navigation URLs.
package tracking

import (
	"net/url"
	"strings"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/urlx"
)

// DefaultParams are the query keys stripped from navigations. A key matches
// when it equals a keyword or starts with one.
var DefaultParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "twclid", "igshid",
	"mc_eid", "mc_cid", "_ga", "_gl", "ref", "source",
}

// DefaultNoRewrite lists URL tokens whose queries must never be touched.
// Video CDN URLs carry signed parameters that break when reordered or trimmed.
var DefaultNoRewrite = []string{"googlevideo.com"}

// Stripper removes tracking parameters from URL queries.
// It holds no mutable state and is safe for concurrent use.
type Stripper struct {
	params    []string
	noRewrite []string
}

// New creates a stripper. Nil slices select the defaults.
func New(params, noRewrite []string) *Stripper {
	if params == nil {
		params = DefaultParams
	}
	if noRewrite == nil {
		noRewrite = DefaultNoRewrite
	}
	return &Stripper{
		params:    lowerAll(params),
		noRewrite: lowerAll(noRewrite),
	}
}

// NewDefault creates a stripper with the built-in keyword list
func NewDefault() *Stripper {
	return New(nil, nil)
}

// Clean returns raw without tracking parameters.
func (s *Stripper) Clean(raw string) string {
	cleaned, _ := s.Strip(raw)
	return cleaned
}

// Strip returns the cleaned URL and the number of parameters removed.
// Malformed input is returned as-is.
func (s *Stripper) Strip(raw string) (string, int) {
	res := urlx.Parse(raw)
	if !res.OK() || res.Parts.RawQuery == "" || s.Exempt(raw) {
		return raw, 0
	}
	parts := res.Parts

	kept := make([]string, 0, len(parts.Query))
	for _, p := range parts.Query {
		if s.isTracking(p.Key) {
			continue
		}
		kept = append(kept, p.Raw)
	}

	removed := len(parts.Query) - len(kept)
	if removed == 0 {
		return raw, 0
	}

	var b strings.Builder
	b.Grow(len(raw))
	b.WriteString(parts.Base)
	if rebuilt := strings.Join(kept, "&"); rebuilt != "" {
		b.WriteByte('?')
		b.WriteString(rebuilt)
	}
	if parts.HasFragment {
		b.WriteByte('#')
		b.WriteString(parts.Fragment)
	}
	return b.String(), removed
}

// Exempt reports whether raw matches a no-rewrite token
func (s *Stripper) Exempt(raw string) bool {
	lower := strings.ToLower(raw)
	for _, token := range s.noRewrite {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func (s *Stripper) isTracking(rawKey string) bool {
	key := rawKey
	if unescaped, err := url.QueryUnescape(rawKey); err == nil {
		key = unescaped
	}
	key = strings.ToLower(key)
	if key == "" {
		return false
	}
	for _, p := range s.params {
		if key == p || strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
