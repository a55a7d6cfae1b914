package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kixonair/kixonair/external/espn"
	"github.com/kixonair/kixonair/external/sportsdb"
	"github.com/kixonair/kixonair/internal/config"
	"github.com/kixonair/kixonair/internal/infrastructure/cachefile"
	"github.com/kixonair/kixonair/internal/interfaces/httpapi"
	"github.com/kixonair/kixonair/internal/platform/cache"
	"github.com/kixonair/kixonair/internal/platform/logging"
	"github.com/kixonair/kixonair/internal/platform/resilience"
	"github.com/kixonair/kixonair/internal/usecase"
)

func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, *usecase.Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientLogger := logging.Default()

	espnClient := espn.NewClient(espn.ClientConfig{
		BaseURL:        cfg.ESPNBaseURL,
		Timeout:        cfg.ESPNTimeout,
		MaxRetries:     cfg.ESPNMaxRetries,
		SoccerSegments: cfg.ESPNSoccerSegments,
		Logger:         clientLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ESPNCircuitEnabled,
			FailureThreshold: cfg.ESPNCircuitFailureCount,
			OpenTimeout:      cfg.ESPNCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ESPNCircuitHalfOpenMaxReq,
		},
	})

	sportsdbClient := sportsdb.NewClient(sportsdb.ClientConfig{
		BaseURL:    cfg.SportsDBBaseURL,
		Key:        cfg.SportsDBKey,
		Timeout:    cfg.SportsDBTimeout,
		MaxRetries: cfg.SportsDBMaxRetries,
		Logger:     clientLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SportsDBCircuitEnabled,
			FailureThreshold: cfg.SportsDBCircuitFailureCount,
			OpenTimeout:      cfg.SportsDBCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SportsDBCircuitHalfOpenMaxReq,
		},
	})

	// A broken cache directory degrades the service to memory-only instead
	// of blocking startup.
	var disk usecase.DayStore
	if diskStore, err := cachefile.NewStore(cfg.CacheDir, clientLogger); err != nil {
		logger.Warn("disk cache unavailable, running memory-only", "dir", cfg.CacheDir, "error", err)
	} else {
		disk = diskStore
	}

	assembler := usecase.NewAssembler(espnClient, sportsdbClient, cfg.FallbackMode, clientLogger)
	enricher := usecase.NewEnricher(
		sportsdbClient,
		cache.NewStore(cfg.LogoTTL),
		cache.NewStore(cfg.LogoNegativeTTL),
		cfg.EnrichConcurrency,
		clientLogger,
	)

	service := usecase.NewFixtureService(usecase.FixtureServiceConfig{
		Assembler:       assembler,
		Enricher:        enricher,
		Memory:          cache.NewStore(cfg.MemoryCacheTTL),
		Disk:            disk,
		TodayCacheTTL:   cfg.TodayCacheTTL,
		SettledCacheTTL: cfg.SettledCacheTTL,
		Logger:          clientLogger,
	})

	refresher := usecase.NewRefresher(service, cfg.RefreshInterval, clientLogger)

	handler := httpapi.NewHandler(service, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.AdminToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, refresher, nil
}
