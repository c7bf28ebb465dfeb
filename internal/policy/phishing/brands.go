package phishing

// Brand is a protected name together with the domains its owner controls.
type Brand struct {
	Name    string
	Domains []string
}

// Lookalike lists visually similar substitutes for a single character.
type Lookalike struct {
	Char        rune
	Substitutes []string
}

// DefaultBrands is checked in order; the first flagged brand wins.
var DefaultBrands = []Brand{
	{Name: "paypal", Domains: []string{"paypal.com", "paypal.me"}},
	{Name: "google", Domains: []string{"google.com", "gmail.com", "accounts.google.com"}},
	{Name: "apple", Domains: []string{"apple.com", "icloud.com", "appleid.apple.com"}},
	{Name: "amazon", Domains: []string{"amazon.com", "aws.amazon.com"}},
	{Name: "microsoft", Domains: []string{"microsoft.com", "live.com", "outlook.com"}},
	{Name: "facebook", Domains: []string{"facebook.com", "fb.com", "meta.com"}},
	{Name: "netflix", Domains: []string{"netflix.com"}},
	{Name: "bank", Domains: []string{"chase.com", "bankofamerica.com", "wellsfargo.com", "citi.com"}},
}

// DefaultLookalikes maps brand characters to their common homoglyphs.
var DefaultLookalikes = []Lookalike{
	{Char: 'a', Substitutes: []string{"4", "@", "α"}},
	{Char: 'e', Substitutes: []string{"3", "€"}},
	{Char: 'i', Substitutes: []string{"1", "!", "l", "|"}},
	{Char: 'o', Substitutes: []string{"0"}},
	{Char: 's', Substitutes: []string{"5", "$"}},
	{Char: 'l', Substitutes: []string{"1", "|", "i"}},
}

// DefaultKnownBad seeds the exact-match blacklist.
var DefaultKnownBad = []string{
	"paypal-verify.com", "paypal-secure.net",
	"g00gle.com", "google-login.net", "accounts-google.com",
	"app1e.com", "apple-id-verify.com", "icloud-secure.net",
	"amaz0n.com", "amazon-order.net", "amazon-secure.com",
	"faceb00k.com", "facebook-login.net", "fb-verify.com",
	"netf1ix.com", "netflix-update.com",
	"micros0ft.com", "microsoft-verify.net",
	"chasebank-verify.com", "bankofamerica-secure.net",
	"secure-login-verify.com", "account-update-required.net",
	"verify-your-account.com", "payment-update.net",
}

// DefaultPatterns are phrase regexes matched against the lower-cased URL.
var DefaultPatterns = []string{
	`login.*verify`,
	`account.*suspended`,
	`update.*payment`,
	`secure.*login`,
	`verify.*identity`,
	`confirm.*account`,
}

// variants returns every single-position homoglyph substitution of name.
func variants(name string, lookalikes []Lookalike) []string {
	subs := make(map[rune][]string, len(lookalikes))
	for _, l := range lookalikes {
		subs[l.Char] = append(subs[l.Char], l.Substitutes...)
	}

	runes := []rune(name)
	var out []string
	for i, c := range runes {
		for _, sub := range subs[c] {
			out = append(out, string(runes[:i])+sub+string(runes[i+1:]))
		}
	}
	return out
}
