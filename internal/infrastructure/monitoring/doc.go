/*
Package monitoring provides Prometheus metrics for the policy daemon.

# Overview

Each Metrics value owns a private registry, so tests and embedded engines
never collide on the default registerer.

# Features

- HTTP request metrics labelled by route template
- Policy decisions by action and blocking stage
- Download classifications and profile switches
- Outbound call timing for blocklist feeds and the clear hook
- Go runtime, process and uptime metrics

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Metrics satisfies engine.Recorder
	eng, _ := engine.New(engine.Options{Recorder: metrics})

	timer := monitoring.NewTimer(metrics, "feeds", "fetch")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
