package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jordanhubbard/promptvault/internal/api"
	"github.com/jordanhubbard/promptvault/internal/auth"
	"github.com/jordanhubbard/promptvault/internal/database"
	"github.com/jordanhubbard/promptvault/internal/evaluation"
	"github.com/jordanhubbard/promptvault/internal/events"
	"github.com/jordanhubbard/promptvault/internal/hotreload"
	"github.com/jordanhubbard/promptvault/internal/metrics"
	"github.com/jordanhubbard/promptvault/internal/prompts"
	"github.com/jordanhubbard/promptvault/internal/telemetry"
	"github.com/jordanhubbard/promptvault/pkg/cache"
	"github.com/jordanhubbard/promptvault/pkg/config"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	seed := flag.Bool("seed", false, "Seed example prompts on startup")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *showHelp {
		printHelp()
		return
	}

	if *showVersion {
		fmt.Printf("PromptVault v%s\n", version)
		return
	}

	cfg, err := config.LoadConfigFromFile(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config from %s: %v", *configPath, err)
		}
		log.Printf("Config %s not found, using defaults", *configPath)
		cfg = config.DefaultConfig()
	}

	// Override with environment variables if set
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Evaluator.APIKey == "" {
		cfg.Evaluator.APIKey = key
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.Type = "postgres"
		cfg.Database.DSN = dsn
		log.Printf("Using Postgres DSN from environment")
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		cfg.Events.NATSEnabled = true
		cfg.Events.NATSURL = natsURL
		log.Printf("Using NATS URL from environment: %s", natsURL)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var db *database.Database
	switch cfg.Database.Type {
	case "postgres":
		db, err = database.NewPostgres(cfg.Database.DSN)
	default:
		db, err = database.New(cfg.Database.Path)
	}
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if *seed || cfg.Database.Seed {
		if err := db.Seed(); err != nil {
			log.Fatalf("failed to seed database: %v", err)
		}
	}

	// Telemetry
	if cfg.Telemetry.Enabled {
		endpoint := cfg.Telemetry.OTLPEndpoint
		if env := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); env != "" {
			endpoint = env
		}
		shutdownTelemetry, err := telemetry.InitTelemetry(runCtx, cfg.Telemetry.ServiceName, endpoint)
		if err != nil {
			log.Printf("Warning: failed to initialize telemetry: %v", err)
		} else {
			defer func() {
				if err := shutdownTelemetry(context.Background()); err != nil {
					log.Printf("Error shutting down telemetry: %v", err)
				}
			}()
		}
	}

	// Event bus
	bus := events.NewBus()
	defer bus.Close()
	if cfg.Events.NATSEnabled {
		if err := bus.ConnectNATS(cfg.Events.NATSURL); err != nil {
			log.Printf("Warning: NATS unavailable, events stay in-process: %v", err)
		}
	}

	// Response cache
	cacheConfig := &cache.Config{
		Enabled:    cfg.Cache.Enabled,
		DefaultTTL: cfg.Cache.DefaultTTL,
		MaxSize:    cfg.Cache.MaxSize,
	}
	var responseCache *cache.Cache
	if cfg.Cache.Backend == "redis" && cfg.Cache.RedisURL != "" {
		backend, err := cache.NewRedisBackend(runCtx, cfg.Cache.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, using in-memory cache: %v", err)
			responseCache = cache.New(cacheConfig)
		} else {
			responseCache = cache.NewWithBackend(cacheConfig, backend)
			log.Printf("Using Redis response cache at %s", cfg.Cache.RedisURL)
		}
	} else {
		responseCache = cache.New(cacheConfig)
	}

	// Evaluation provider
	var provider evaluation.Provider
	switch cfg.Evaluator.Provider {
	case "anthropic":
		provider, err = evaluation.NewAnthropicProvider(cfg.Evaluator.APIKey, cfg.Evaluator.Model)
		if err != nil {
			log.Fatalf("failed to create anthropic provider: %v", err)
		}
	case "heuristic", "":
		provider = evaluation.NewHeuristicProvider()
	default:
		log.Fatalf("unknown evaluator provider %q", cfg.Evaluator.Provider)
	}
	log.Printf("Evaluation provider: %s", provider.Name())

	m := metrics.NewMetrics()
	promptService := prompts.NewService(db, bus, responseCache, m)
	evalService := evaluation.NewService(db, evaluation.NewEvaluator(provider, cfg.Evaluator.Concurrency), bus, responseCache, m)
	authManager := auth.NewManager(cfg.Security)

	apiServer := api.NewServer(promptService, evalService, bus, authManager, cfg)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer.SetupRoutes())
	mux.Handle("/metrics", promhttp.Handler())

	handler := otelhttp.NewHandler(mux, "promptvault-http-server")

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Hot-reload: exit-on-change is the simplest safe reload under a
	// process supervisor. In-place reconfiguration is not supported.
	if cfg.HotReload.Enabled {
		watcher, err := hotreload.NewWatcher(*configPath, func() {
			log.Printf("Config changed, shutting down for supervisor restart")
			cancel()
		})
		if err != nil {
			log.Printf("Hot-reload initialization failed: %v", err)
		} else {
			watcher.Start(runCtx)
		}
	}

	go func() {
		log.Printf("PromptVault API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-runCtx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	log.Printf("PromptVault stopped")
}

func printHelp() {
	fmt.Println("Usage: promptvault [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -config   Path to configuration file (default: config.yaml)")
	fmt.Println("  -seed     Seed example prompts on startup")
	fmt.Println("  -version  Show version information")
	fmt.Println("  -help     Show help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ANTHROPIC_API_KEY  API key for the anthropic evaluation provider")
	fmt.Println("  DATABASE_DSN       Postgres DSN (overrides the sqlite default)")
	fmt.Println("  NATS_URL           NATS server URL for external event publishing")
}
