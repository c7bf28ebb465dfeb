// Package engine orchestrates the navigation and download policy.
//
// An Engine is built once at startup and shared by every caller:
//   - Evaluate: normalize, HTTPS-only gate, HTTPS upgrade, tracking-parameter
//     stripping, profile site block, blocklist, phishing
//   - ClassifyDownload / InspectDownload: extension and content risk
//   - SwitchProfile: re-applies all profile-owned toggles as one transition
//   - Mutators (toggles, blocklist, phishing set) persist through a Persister
//
// Concurrency:
//   - Mutations take the write lock
//   - Evaluate holds the read lock for its whole run
//   - Persister and Clearer calls happen after the lock is released
//
// Evaluation is in-memory and never returns an error. Malformed URLs are
// passed through unchanged.
package engine
