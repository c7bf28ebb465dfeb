// Package main is the entry point for the Krill policy daemon.
//
// policyd answers the browser shell's navigation, download, phishing and
// profile questions over a local JSON API.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for a single local user
//
// Usage:
//
//	# Default: 127.0.0.1:8000, state in ~/.krillbrowser
//	./policyd
//
//	# Development mode (colored logs, debug level)
//	./policyd -dev -profile coding
//
//	# Extra blocklist feeds
//	FEED_URLS=https://example.org/hosts ./policyd
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown (state is saved, clear-on-exit runs)
package main
