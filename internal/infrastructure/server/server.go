package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	api "github.com/BigJoe84g/Krill-Browser/internal/api/http"
	"github.com/BigJoe84g/Krill-Browser/internal/api/middleware"
	"github.com/BigJoe84g/Krill-Browser/internal/api/ws"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/config"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/logging"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/monitoring"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/tracing"
	"github.com/BigJoe84g/Krill-Browser/internal/persist"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/blocklist"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/tracking"
	"github.com/BigJoe84g/Krill-Browser/internal/remote"
	"github.com/BigJoe84g/Krill-Browser/internal/shared/paths"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	engine  *engine.Engine
	feeds   *remote.FeedLoader
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs through logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing Krill policy daemon",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("profile", cfg.Policy.Profile),
		zap.Bool("persist", cfg.Policy.Persist),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("policyd", logger.For("tracing"))

	eng, err := buildEngine(cfg, logger, metrics)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	metrics.SetBlocklistEntries(len(eng.Blocklist()))

	var feeds *remote.FeedLoader
	if len(cfg.Feeds.URLs) > 0 {
		feeds = remote.NewFeedLoader(remote.FeedConfig{
			URLs:    cfg.Feeds.URLs,
			Timeout: cfg.Feeds.Timeout,
			Retries: cfg.Feeds.Retries,
			Metrics: metrics,
			Logger:  logger.For("feeds"),
		})
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.BodyLimit(middleware.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(eng, metrics, logger.For("api"))
	handlers.Register(router)
	router.GET("/stream", ws.NewHandler(eng, logger.For("ws")).HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully",
		zap.Int("blocklist_entries", len(eng.Blocklist())),
		zap.Int("feeds", len(cfg.Feeds.URLs)),
	)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		},
		engine:  eng,
		feeds:   feeds,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

func buildEngine(cfg *config.Config, logger *logging.Logger, metrics *monitoring.Metrics) (*engine.Engine, error) {
	layout, err := paths.Resolve(cfg.Policy.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	pid, err := profile.ParseID(cfg.Policy.Profile)
	if err != nil {
		return nil, fmt.Errorf("invalid startup profile: %w", err)
	}

	profiles := profile.NewStore()
	if err := applyOverrides(profiles, cfg.Policy.ProfileFile, layout, logger); err != nil {
		return nil, err
	}

	opts := engine.Options{
		Logger:            logger.For("engine"),
		Blocklist:         blocklist.New(blocklist.DefaultDomains, cfg.Policy.Whitelist),
		Stripper:          tracking.New(nil, cfg.Policy.NoRewriteHosts),
		Profiles:          profiles,
		Recorder:          metrics,
		Profile:           pid,
		SearchURL:         cfg.Policy.SearchURL,
		PhishingThreshold: cfg.Policy.PhishingThreshold,
	}

	var saved engine.Snapshot
	if cfg.Policy.Persist {
		store := persist.New(layout, logger.For("persist"))
		saved = store.Restore(&opts)
		opts.Persister = store
		logger.Info("State persistence enabled", zap.String("dir", layout.Root))
	}

	if cfg.Policy.ClearHook != "" {
		opts.Clearer = remote.NewClearHook(cfg.Policy.ClearHook, metrics, logger.For("clear_hook"))
		logger.Info("Clear hook configured", zap.String("url", cfg.Policy.ClearHook))
	}

	eng, err := engine.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	domains := eng.LoadBlocklist(saved.CustomBlocklist)
	phishing := eng.LoadPhishingDomains(saved.CustomPhishing)
	sites := eng.LoadProfileSites(saved.ProfileSites)
	if domains+phishing+sites > 0 {
		logger.Info("Restored user additions",
			zap.Int("domains", domains),
			zap.Int("phishing_domains", phishing),
			zap.Int("profile_sites", sites),
		)
	}
	return eng, nil
}

// applyOverrides merges profile overrides. An explicit file must load; the
// file in the data directory is optional.
func applyOverrides(store *profile.Store, explicit string, layout paths.Layout, logger *logging.Logger) error {
	path := explicit
	if path == "" {
		path = layout.Profiles()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
	}

	ov, err := profile.LoadOverrides(path)
	if err == nil {
		err = store.Apply(ov)
	}
	if err != nil {
		if explicit != "" {
			return fmt.Errorf("failed to apply profile overrides %s: %w", path, err)
		}
		logger.Warn("Ignoring profile overrides", zap.String("path", path), zap.Error(err))
		return nil
	}

	logger.Info("Applied profile overrides", zap.String("path", path), zap.Int("profiles", len(ov.Profiles)))
	return nil
}

// Engine returns the policy engine
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled or the listener fails. Feeds load
// in the background so a slow mirror never delays startup.
func (s *Server) Run(ctx context.Context) error {
	if s.feeds != nil {
		go s.refreshFeeds(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) refreshFeeds(ctx context.Context) {
	s.LoadFeeds(ctx)

	interval := s.config.Feeds.Refresh
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.LoadFeeds(ctx)
		}
	}
}

// LoadFeeds fetches every configured feed once and merges the domains into
// the blocklist. It returns the number of new entries.
func (s *Server) LoadFeeds(ctx context.Context) int {
	if s.feeds == nil {
		return 0
	}

	domains, results, err := s.feeds.LoadAll(ctx)
	added := s.engine.MergeBlocklist(domains)
	s.metrics.SetBlocklistEntries(len(s.engine.Blocklist()))

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fields := []zap.Field{
		zap.Int("feeds", len(results)),
		zap.Int("failed", failed),
		zap.Int("added", added),
	}
	if err != nil {
		s.logger.Warn("Blocklist feeds partially loaded", append(fields, zap.Error(err))...)
	} else {
		s.logger.Info("Blocklist feeds loaded", fields...)
	}
	return added
}

// Close gracefully shuts down the server, saves policy state and runs the
// clear-on-exit hook.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to stop http server: %w", err))
	}
	if err := s.engine.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down policy engine", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down engine: %w", err))
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
