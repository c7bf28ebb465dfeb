// Package phishing scores URLs for brand impersonation.
//
// Rules run in a fixed order and the first hit decides the verdict:
//
//	known-bad domain        100
//	brand lookalike         85  (per brand, before substitution)
//	character substitution  90
//	suspicious phrase       70
//	deep subdomain          60
//	raw IPv4 address        75
//	mixed-script IDN host   80
//
// Confidence is fixed per rule. Scores are never combined.
package phishing
