package http

import (
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
)

// Summary condenses the metrics snapshot for the stats endpoint
type Summary struct {
	TotalRequests     int64   `json:"total_requests"`
	ErrorRate         float64 `json:"error_rate"`
	Decisions         int64   `json:"decisions"`
	BlockRate         float64 `json:"block_rate"`
	AvgDecisionMicros float64 `json:"avg_decision_us"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

func summarize(snap monitoring.MetricsSnapshot) Summary {
	s := Summary{
		TotalRequests: snap.TotalRequests,
		Decisions:     snap.Decisions,
		UptimeSeconds: snap.UptimeSeconds,
	}
	if snap.TotalRequests > 0 {
		s.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	if snap.Decisions > 0 {
		s.BlockRate = float64(snap.Blocks) / float64(snap.Decisions)
		s.AvgDecisionMicros = snap.TotalDuration / float64(snap.Decisions) * 1e6
	}
	return s
}
