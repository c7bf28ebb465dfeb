// Package config provides 12-factor configuration management for the policy daemon.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Policy: Data directory, startup profile, search template, phishing threshold
//   - Feeds: Remote blocklist feeds merged at startup and on a refresh interval
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("policyd listening on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - POLICY_DATA_DIR, POLICY_PROFILE, POLICY_SEARCH_URL, POLICY_PHISHING_THRESHOLD
//   - POLICY_WHITELIST, POLICY_NO_REWRITE_HOSTS, POLICY_PROFILE_FILE
//   - POLICY_CLEAR_HOOK, POLICY_PERSIST
//   - FEED_URLS, FEED_TIMEOUT, FEED_RETRIES, FEED_REFRESH
package config
