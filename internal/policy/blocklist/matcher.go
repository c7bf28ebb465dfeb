// Package blocklist matches URLs against tracker, ad and malware domains.
package blocklist

import (
	"sort"
	"strings"
	"sync"
)

// DefaultWhitelist holds hosts that are never blocked (video CDN traffic).
var DefaultWhitelist = []string{"youtube.com", "googlevideo.com"}

// DefaultDomains is the built-in tracker, ad network and malware list.
var DefaultDomains = []string{
	// Analytics
	"google-analytics.com", "googletagmanager.com", "googleadservices.com",
	"doubleclick.net", "googlesyndication.com", "googletagservices.com",
	// Facebook
	"facebook.net", "fbcdn.net", "facebook.com/tr", "connect.facebook.net",
	// Twitter
	"ads-twitter.com", "analytics.twitter.com",
	// Session recording and product analytics
	"hotjar.com", "mixpanel.com", "segment.io", "amplitude.com",
	"newrelic.com", "nr-data.net", "fullstory.com",
	"mouseflow.com", "crazyegg.com", "luckyorange.com",
	// Ad networks
	"adnxs.com", "adsrvr.org", "advertising.com", "adform.net",
	"criteo.com", "criteo.net", "outbrain.com", "taboola.com",
	"amazon-adsystem.com", "media.net", "pubmatic.com",
	// Malware and scams
	"malware.com", "phishing-site.com", "fake-bank.com",
	"virus-download.net", "steal-passwords.com", "crypto-scam.com",
	"tracking-ads.com", "free-iphone-winner.com",
	"your-computer-infected.com", "click-here-now.xyz",
}

// Matcher answers "is this URL blocked" using substring semantics: an entry
// matches when it appears anywhere in the lower-cased URL, so path-scoped
// entries such as "facebook.com/tr" work. Whitelist tokens win over entries.
type Matcher struct {
	mu        sync.RWMutex
	entries   map[string]struct{}
	custom    map[string]struct{}
	sorted    []string
	whitelist []string
}

// New creates a matcher seeded with domains. A nil whitelist selects
// DefaultWhitelist; pass an empty slice to disable whitelisting.
func New(domains []string, whitelist []string) *Matcher {
	if whitelist == nil {
		whitelist = DefaultWhitelist
	}

	m := &Matcher{
		entries: make(map[string]struct{}, len(domains)),
		custom:  make(map[string]struct{}),
	}
	for _, w := range whitelist {
		if w = Normalize(w); w != "" {
			m.whitelist = append(m.whitelist, w)
		}
	}
	for _, d := range domains {
		if d = Normalize(d); d != "" {
			m.entries[d] = struct{}{}
		}
	}
	m.resort()
	return m
}

// NewDefault creates a matcher with the built-in list and whitelist.
func NewDefault() *Matcher {
	return New(DefaultDomains, DefaultWhitelist)
}

// Normalize lower-cases and trims an entry
func Normalize(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// IsBlocked reports whether url hits the blocklist
func (m *Matcher) IsBlocked(url string) bool {
	_, ok := m.Match(url)
	return ok
}

// Match returns the first entry (in lexical order) contained in url.
func (m *Matcher) Match(url string) (string, bool) {
	lower := strings.ToLower(url)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.whitelistedLocked(lower) {
		return "", false
	}
	for _, entry := range m.sorted {
		if strings.Contains(lower, entry) {
			return entry, true
		}
	}
	return "", false
}

func (m *Matcher) whitelistedLocked(lower string) bool {
	for _, w := range m.whitelist {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Add inserts a user entry. It returns false for empty or duplicate input.
func (m *Matcher) Add(domain string) bool {
	domain = Normalize(domain)
	if domain == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[domain]; exists {
		return false
	}
	m.entries[domain] = struct{}{}
	m.custom[domain] = struct{}{}
	m.resort()
	return true
}

// AddAll inserts user entries and returns how many were new.
func (m *Matcher) AddAll(domains []string) int {
	added := 0
	for _, d := range domains {
		if m.Add(d) {
			added++
		}
	}
	return added
}

// Merge inserts entries from an external source such as a feed. They match
// like built-in entries and are not reported by Custom.
func (m *Matcher) Merge(domains []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, d := range domains {
		if d = Normalize(d); d == "" {
			continue
		}
		if _, exists := m.entries[d]; exists {
			continue
		}
		m.entries[d] = struct{}{}
		added++
	}
	if added > 0 {
		m.resort()
	}
	return added
}

// Remove deletes an entry, built-in or custom.
func (m *Matcher) Remove(domain string) bool {
	domain = Normalize(domain)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[domain]; !exists {
		return false
	}
	delete(m.entries, domain)
	delete(m.custom, domain)
	m.resort()
	return true
}

// Contains reports exact membership
func (m *Matcher) Contains(domain string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[Normalize(domain)]
	return ok
}

// Len returns the number of entries
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// List returns all entries sorted
func (m *Matcher) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sorted...)
}

// Custom returns the user-added entries sorted
func (m *Matcher) Custom() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.custom))
	for d := range m.custom {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// resort rebuilds the ordered view. Caller must hold the write lock.
func (m *Matcher) resort() {
	sorted := make([]string, 0, len(m.entries))
	for d := range m.entries {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	m.sorted = sorted
}
