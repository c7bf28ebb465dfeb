/*
Package tracing provides lightweight request tracing for the policy daemon.

# Overview

Every API request gets a trace and span ID. The IDs are echoed in response
headers so the browser shell can correlate its own logs, and they are
forwarded on outbound calls such as the clear hook.

# Usage

	tracer := tracing.New("policyd", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// outbound propagation
	tracing.Inject(ctx, req.Header)

# Trace Format

- X-Trace-ID: identifier for the whole request flow (req_<ULID>)
- X-Span-ID: identifier for the current operation

Finished spans are logged at Debug from a buffered collector; spans with
errors are logged at Warn.
*/
package tracing
