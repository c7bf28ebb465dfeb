package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/config"
	"github.com/BigJoe84g/Krill-Browser/internal/infrastructure/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen host")
	flag.StringVar(&cfg.Policy.DataDir, "data", cfg.Policy.DataDir, "Data directory (default ~/.krillbrowser)")
	flag.StringVar(&cfg.Policy.Profile, "profile", cfg.Policy.Profile, "Startup profile")
	flag.StringVar(&cfg.Policy.ProfileFile, "profiles", cfg.Policy.ProfileFile, "Profile override file (YAML or TOML)")
	flag.StringVar(&cfg.Policy.ClearHook, "clear-hook", cfg.Policy.ClearHook, "URL notified to wipe browsing data")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development mode")
	flag.Parse()

	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
}
