package phishing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Zamiell/confusables"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/urlx"
)

// Rule identifies which check produced a verdict
type Rule string

const (
	RuleNone              Rule = ""
	RuleKnownBad          Rule = "known-bad"
	RuleLookalikeDomain   Rule = "lookalike-domain"
	RuleCharSubstitution  Rule = "char-substitution"
	RuleSuspiciousPattern Rule = "suspicious-pattern"
	RuleDeepSubdomain     Rule = "deep-subdomain"
	RuleRawIP             Rule = "raw-ip"
	RuleMixedScript       Rule = "mixed-script"
)

// Fixed confidence per rule
const (
	ConfidenceKnownBad          = 100
	ConfidenceCharSubstitution  = 90
	ConfidenceLookalikeDomain   = 85
	ConfidenceMixedScript       = 80
	ConfidenceRawIP             = 75
	ConfidenceSuspiciousPattern = 70
	ConfidenceDeepSubdomain     = 60
)

// maxDots is the deepest host structure considered normal
const maxDots = 3

var ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// Verdict is the outcome of a phishing check. Confidence is 0 when clean.
type Verdict struct {
	IsPhishing bool   `json:"is_phishing"`
	Reason     string `json:"reason,omitempty"`
	Confidence int    `json:"confidence"`
	Rule       Rule   `json:"rule,omitempty"`
	Brand      string `json:"brand,omitempty"`
	Host       string `json:"host"`
	// Domain is the registrable domain (eTLD+1) of Host, when it has one
	Domain string `json:"domain,omitempty"`
}

// Config overrides the detector's data. Empty fields select the defaults.
type Config struct {
	Brands     []Brand
	Lookalikes []Lookalike
	KnownBad   []string
	Patterns   []string
}

type protectedBrand struct {
	Brand
	variants []string
}

// Detector scores URLs against brand-impersonation heuristics.
// The known-bad set is mutable; everything else is fixed at construction.
type Detector struct {
	mu       sync.RWMutex
	known    map[string]struct{}
	custom   map[string]struct{}
	brands   []protectedBrand
	patterns []*regexp.Regexp
}

// New builds a detector from cfg
func New(cfg Config) (*Detector, error) {
	if cfg.Brands == nil {
		cfg.Brands = DefaultBrands
	}
	if cfg.Lookalikes == nil {
		cfg.Lookalikes = DefaultLookalikes
	}
	if cfg.KnownBad == nil {
		cfg.KnownBad = DefaultKnownBad
	}
	if cfg.Patterns == nil {
		cfg.Patterns = DefaultPatterns
	}

	d := &Detector{
		known:  make(map[string]struct{}, len(cfg.KnownBad)),
		custom: make(map[string]struct{}),
	}
	for _, domain := range cfg.KnownBad {
		d.add(domain, false)
	}
	for _, b := range cfg.Brands {
		name := strings.ToLower(b.Name)
		domains := make([]string, 0, len(b.Domains))
		for _, domain := range b.Domains {
			domains = append(domains, strings.ToLower(domain))
		}
		d.brands = append(d.brands, protectedBrand{
			Brand:    Brand{Name: name, Domains: domains},
			variants: variants(name, cfg.Lookalikes),
		})
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// NewDefault builds a detector with the built-in data
func NewDefault() *Detector {
	d, err := New(Config{})
	if err != nil {
		panic(err)
	}
	return d
}

// Check scores raw. Rules run in a fixed order and the first hit wins.
func (d *Detector) Check(raw string) Verdict {
	host := urlx.Hostname(urlx.BareHost(raw))
	domain := urlx.RegistrableDomain(host)
	lowerURL := strings.ToLower(raw)

	d.mu.RLock()
	_, known := d.known[host]
	if !known && domain != "" {
		_, known = d.known[domain]
	}
	d.mu.RUnlock()
	if known {
		return flagged(host, domain, RuleKnownBad, "", "Known phishing domain", ConfidenceKnownBad)
	}

	unicodeHost := urlx.UnicodeHost(host)
	skeleton := unicodeHost
	if unicodeHost != host {
		skeleton = strings.ToLower(confusables.Normalize(unicodeHost))
	}
	for _, b := range d.brands {
		if strings.Contains(host, b.Name) && !b.owns(host) {
			return flagged(host, domain, RuleLookalikeDomain, b.Name,
				fmt.Sprintf("Suspicious %s lookalike domain", b.Name), ConfidenceLookalikeDomain)
		}
		if b.impersonatedBy(host) || (unicodeHost != host && b.impersonatedBy(unicodeHost)) ||
			(skeleton != unicodeHost && strings.Contains(skeleton, b.Name)) {
			return flagged(host, domain, RuleCharSubstitution, b.Name,
				fmt.Sprintf("Possible %s impersonation (character substitution)", b.Name), ConfidenceCharSubstitution)
		}
	}

	for _, re := range d.patterns {
		if re.MatchString(lowerURL) {
			return flagged(host, domain, RuleSuspiciousPattern, "", "Suspicious URL pattern detected", ConfidenceSuspiciousPattern)
		}
	}

	if strings.Count(host, ".") > maxDots {
		return flagged(host, domain, RuleDeepSubdomain, "", "Unusually complex domain structure", ConfidenceDeepSubdomain)
	}

	if ipv4Pattern.MatchString(raw) {
		return flagged(host, domain, RuleRawIP, "", "URL contains IP address (suspicious)", ConfidenceRawIP)
	}

	if unicodeHost != host && mixedScript(unicodeHost) {
		return flagged(host, domain, RuleMixedScript, "", "Domain mixes character sets (homograph)", ConfidenceMixedScript)
	}

	return Verdict{Host: host, Domain: domain}
}

// Add extends the known-bad set with a user-reported domain. Empty input
// is ignored.
func (d *Detector) Add(domain string) bool {
	return d.add(domain, true)
}

func (d *Detector) add(domain string, custom bool) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.known[domain]; exists {
		return false
	}
	d.known[domain] = struct{}{}
	if custom {
		d.custom[domain] = struct{}{}
	}
	return true
}

// IsKnown reports exact membership in the known-bad set
func (d *Detector) IsKnown(domain string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.known[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Known returns the known-bad set sorted
func (d *Detector) Known() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.known))
	for domain := range d.known {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// Custom returns the user-reported domains sorted
func (d *Detector) Custom() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.custom))
	for domain := range d.custom {
		out = append(out, domain)
	}
	sort.Strings(out)
	return out
}

// Brands returns the protected brand names in check order
func (d *Detector) Brands() []string {
	out := make([]string, 0, len(d.brands))
	for _, b := range d.brands {
		out = append(out, b.Name)
	}
	return out
}

func (b protectedBrand) owns(host string) bool {
	for _, domain := range b.Domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func (b protectedBrand) impersonatedBy(host string) bool {
	for _, v := range b.variants {
		if strings.Contains(host, v) {
			return true
		}
	}
	return false
}

func flagged(host, domain string, rule Rule, brand, reason string, confidence int) Verdict {
	return Verdict{
		Domain:     domain,
		IsPhishing: true,
		Reason:     reason,
		Confidence: confidence,
		Rule:       rule,
		Brand:      brand,
		Host:       host,
	}
}

var scripts = []*unicode.RangeTable{
	unicode.Latin, unicode.Cyrillic, unicode.Greek, unicode.Armenian,
	unicode.Hebrew, unicode.Arabic, unicode.Han, unicode.Hiragana,
	unicode.Katakana, unicode.Hangul, unicode.Thai,
}

// mixedScript reports whether the letters of host come from more than one
// script within a single label.
func mixedScript(host string) bool {
	for _, label := range strings.Split(host, ".") {
		seen := -1
		for _, r := range label {
			if !unicode.IsLetter(r) {
				continue
			}
			for i, table := range scripts {
				if !unicode.Is(table, r) {
					continue
				}
				if seen >= 0 && seen != i {
					return true
				}
				seen = i
				break
			}
		}
	}
	return false
}
