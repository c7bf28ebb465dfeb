// Package middleware provides Gin middleware for the policy API.
//
//   - CORS: lets the browser shell call the daemon from any origin
//   - RateLimit: per-client token bucket with idle eviction
//   - BodyLimit: caps request bodies
package middleware
