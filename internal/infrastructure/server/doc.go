// Package server wires the policy daemon: configuration, logging, metrics,
// tracing, persistence, remote feeds and the HTTP API around one engine.
//
// Lifecycle:
//
//	srv, err := server.NewServer(cfg)
//	go srv.Run(ctx)      // serves until ctx is cancelled
//	srv.Close(shutdownCtx) // drains HTTP, saves state, clear-on-exit
package server
