package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/samijaber1/aegis-claims/internal/adapter/file"
	"github.com/samijaber1/aegis-claims/internal/adapter/remote"
	"github.com/samijaber1/aegis-claims/internal/api"
	"github.com/samijaber1/aegis-claims/internal/config"
	"github.com/samijaber1/aegis-claims/internal/metrics"
	"github.com/samijaber1/aegis-claims/internal/scheduler"
	"github.com/samijaber1/aegis-claims/internal/storage"
	"github.com/samijaber1/aegis-claims/internal/storage/sqlite"
)

func main() {
	// Parse flags
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting AegisClaims server...")
	log.Printf("Config: port=%d, source=%s, refresh=%s, sla-days=%d, high-risk-ratio=%g, zero-premium=%s",
		cfg.Port, cfg.SourceType, cfg.RefreshInterval, cfg.Rules.SLAThresholdDays,
		cfg.Rules.HighRiskLossRatio, cfg.Rules.ZeroPremium)

	// Create dataset source
	var source scheduler.Source
	switch cfg.SourceType {
	case config.SourceRemote:
		remoteConfig := remote.DefaultConfig(cfg.RemoteURL)
		remoteConfig.Timeout = cfg.RemoteTimeout
		source = remote.NewAdapter(remoteConfig)
		log.Printf("Using remote dataset source: %s", cfg.RemoteURL)

	case config.SourceFile:
		source = file.NewAdapter(cfg.DatasetDirectory)
		log.Printf("Using dataset directory: %s", cfg.DatasetDirectory)

	default:
		log.Fatalf("Unknown source type: %s", cfg.SourceType)
	}

	// Open audit storage
	var audit storage.AuditStorage
	if cfg.AuditDBPath != "" {
		store, err := sqlite.NewStore(cfg.AuditDBPath)
		if err != nil {
			log.Fatalf("Failed to open audit database: %v", err)
		}
		defer store.Close()
		audit = store
		log.Printf("Recording analysis runs in %s", cfg.AuditDBPath)
	} else {
		log.Printf("Audit storage disabled, analysis runs will not be persisted")
	}

	// Create scheduler
	analyzer := metrics.NewAnalyzer(cfg.Rules)
	sched := scheduler.NewScheduler(source, analyzer, cfg.RefreshInterval)
	sched.SetConcurrency(cfg.RefreshWorkers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Create and start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	apiServer := api.NewServer(sched, audit, addr)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- apiServer.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		sched.Stop()
		log.Fatalf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
		defer shutdownCancel()

		log.Println("Shutting down server...")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}

		sched.Stop()

		log.Println("Shutdown complete")
	}
}

// loadConfig builds the configuration from defaults, the optional -config
// YAML file and finally any flags given on the command line
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "YAML configuration file")
	registerFlags(flag.CommandLine, &cfg)
	flag.Parse()

	if *configPath == "" {
		return cfg, nil
	}

	fileCfg := config.DefaultConfig()
	if err := config.LoadFile(*configPath, &fileCfg); err != nil {
		return cfg, err
	}

	// Explicit flags win over the file
	overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
	registerFlags(overrides, &fileCfg)

	var setErr error
	flag.Visit(func(f *flag.Flag) {
		if overrides.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overrides.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return cfg, fmt.Errorf("failed to apply flag overrides: %w", setErr)
	}

	return fileCfg, nil
}

func registerFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "HTTP server host")
	fs.StringVar(&cfg.SourceType, "source", cfg.SourceType, "Dataset source type (file|remote)")
	fs.StringVar(&cfg.DatasetDirectory, "dataset-dir", cfg.DatasetDirectory, "Directory containing claims dataset files")
	fs.StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "Base URL of the remote dataset service (required for remote source)")
	fs.DurationVar(&cfg.RemoteTimeout, "remote-timeout", cfg.RemoteTimeout, "Timeout for remote dataset requests")
	fs.DurationVar(&cfg.RefreshInterval, "refresh-interval", cfg.RefreshInterval, "Interval between dataset refreshes")
	fs.IntVar(&cfg.RefreshWorkers, "refresh-workers", cfg.RefreshWorkers, "Datasets refreshed in parallel")
	fs.StringVar(&cfg.AuditDBPath, "audit-db", cfg.AuditDBPath, "SQLite database for analysis runs (empty disables persistence)")
	fs.IntVar(&cfg.Rules.SLAThresholdDays, "sla-days", cfg.Rules.SLAThresholdDays, "SLA breach threshold in days")
	fs.Float64Var(&cfg.Rules.HighRiskLossRatio, "high-risk-ratio", cfg.Rules.HighRiskLossRatio, "Loss ratio above which a claim is high-risk")
	fs.Var(&cfg.Rules.ZeroPremium, "zero-premium", "Zero premium handling (flag|error)")
	fs.DurationVar(&cfg.GracefulShutdownTimeout, "shutdown-timeout", cfg.GracefulShutdownTimeout, "Graceful shutdown timeout")
}
