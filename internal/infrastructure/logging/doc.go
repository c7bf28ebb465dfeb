// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Policy components take a *zap.Logger and fall back to zap.NewNop when
// given nil, so the daemon hands each one a named child:
//
//	logger := logging.NewDefault()
//	eng, err := engine.New(engine.Options{Logger: logger.For("engine")})
//	logger.Info("policyd starting", zap.String("addr", addr))
package logging
