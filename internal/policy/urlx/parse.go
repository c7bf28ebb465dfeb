package urlx

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Kind tags a parse result
type Kind int

const (
	// KindParsed means the input was split into its components
	KindParsed Kind = iota
	// KindFallback means parsing failed and only the original string is kept
	KindFallback
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindParsed:
		return "parsed"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Param is a single query pair in its raw (still escaped) form.
type Param struct {
	Key   string
	Value string
	// Raw is the pair exactly as it appeared between '&' separators.
	Raw string
}

// Parts holds the pieces of a successfully parsed URL that rewriting
// needs. Every field keeps the exact text of the input.
type Parts struct {
	// Base is everything before the first '?' (or '#').
	Base     string
	RawQuery string
	Query    []Param
	// Fragment is the text after '#'; HasFragment tells "#" from no fragment.
	Fragment    string
	HasFragment bool
}

// Result is the outcome of Parse. Exactly one of Parts/Err is meaningful,
// selected by Kind; Raw is always the untouched input.
type Result struct {
	Kind  Kind
	Raw   string
	Parts *Parts
	Err   error
}

// OK reports whether the input parsed
func (r Result) OK() bool {
	return r.Kind == KindParsed && r.Parts != nil
}

// Parse splits raw into components. It never panics and never discards the
// input: on failure the returned Result carries KindFallback and the cause.
func Parse(raw string) Result {
	u, err := url.Parse(raw)
	if err != nil {
		return Result{Kind: KindFallback, Raw: raw, Err: fmt.Errorf("parse url: %w", err)}
	}

	parts := &Parts{
		Base:     base(raw),
		RawQuery: u.RawQuery,
		Query:    SplitQuery(u.RawQuery),
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		parts.Fragment = raw[i+1:]
		parts.HasFragment = true
	}

	return Result{Kind: KindParsed, Raw: raw, Parts: parts}
}

// SplitQuery splits a raw query on '&' preserving order and empty pairs.
func SplitQuery(rawQuery string) []Param {
	if rawQuery == "" {
		return nil
	}
	pairs := strings.Split(rawQuery, "&")
	params := make([]Param, 0, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		params = append(params, Param{Key: key, Value: value, Raw: pair})
	}
	return params
}

// base returns the input up to the first '?' or '#'.
func base(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// BareHost strips an http(s) scheme and cuts at the first path, query or
// fragment delimiter. The port is kept. It works on arbitrary text.
func BareHost(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

// Hostname drops a trailing :port from a BareHost result.
func Hostname(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// HasHTTPScheme reports whether raw starts with http:// or https://.
func HasHTTPScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// IsInsecure reports whether raw uses plain http.
func IsInsecure(raw string) bool {
	return strings.HasPrefix(strings.ToLower(raw), "http://")
}

// UpgradeToHTTPS rewrites a leading http:// to https://.
func UpgradeToHTTPS(raw string) string {
	if !IsInsecure(raw) {
		return raw
	}
	return "https://" + raw[len("http://"):]
}

// RegistrableDomain returns the eTLD+1 of host, or "" when publicsuffix
// cannot classify it (IP literals, single-label hosts).
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(Hostname(strings.ToLower(host)), ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return ""
	}
	return domain
}

// UnicodeHost converts a punycode host to its Unicode form. The input is
// returned unchanged when conversion fails.
func UnicodeHost(host string) string {
	converted, err := idna.Lookup.ToUnicode(host)
	if err != nil || converted == "" {
		return host
	}
	return converted
}
