/*
Package resilience guards the daemon's outbound calls with circuit breakers.

# Overview

Breakers wrap sony/gobreaker. Remote blocklist feeds and the clear hook each
get their own breaker, so a dead feed host never delays startup twice in a
row and a missing clear hook fails fast.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Presets for feeds (FeedSettings) and the clear hook (HookSettings)
- State transitions logged through zap
- Context cancellation is not counted as a failure

# Usage

	// Create a circuit breaker
	breaker := resilience.New("service", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Logger: logger,
	})

	// Execute request through breaker
	result, err := breaker.Execute(func() (interface{}, error) {
		return client.R().SetContext(ctx).Get(feedURL)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Service unavailable, requests fail immediately
- Half-Open: Testing if service recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
