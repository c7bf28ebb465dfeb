// Package remote holds the daemon's outbound HTTP collaborators.
//
//   - FeedLoader: downloads hosts-format or plain blocklists, gzip or not
//   - ClearHook: tells the browser shell to wipe data (panic clear, clear on exit)
//
// Both share Client: resty on top of a retryablehttp transport, a token
// bucket limiter and a circuit breaker. Calls are timed into the
// krill_service_* metrics and carry the caller's trace headers.
package remote
