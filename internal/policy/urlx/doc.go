// Package urlx parses untrusted URL text into a tagged result.
//
// Browser input is never assumed valid. Parse returns either KindParsed with
// the derived components, or KindFallback carrying the original string and the
// parse error, so callers can fail open explicitly:
//
//	res := urlx.Parse(raw)
//	if !res.OK() {
//		return raw
//	}
//
// Helpers here operate on plain text and never panic on malformed input.
package urlx
