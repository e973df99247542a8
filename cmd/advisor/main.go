// Command advisor runs the agricultural advisory HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krishimitra/advisor/agents"
	"github.com/krishimitra/advisor/core"
	"github.com/krishimitra/advisor/learning"
	"github.com/krishimitra/advisor/location"
	"github.com/krishimitra/advisor/orchestration"
	"github.com/krishimitra/advisor/ratelimit"
	"github.com/krishimitra/advisor/retrieval"
	"github.com/krishimitra/advisor/server"
	"github.com/krishimitra/advisor/telemetry"
	"github.com/krishimitra/advisor/weatherapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "advisor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := core.NewConfig()
	if err != nil {
		return err
	}

	logger := core.NewJSONLogger(cfg.ServiceName, core.ParseLogLevel(cfg.LogLevel))

	var tracer core.Telemetry = &core.NoOpTelemetry{}
	if cfg.TelemetryEnabled {
		provider, err := telemetry.Init(cfg.ServiceName)
		if err != nil {
			logger.Warn("Telemetry init failed, continuing without", map[string]interface{}{
				"error": err,
			})
		} else {
			tracer = provider
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				provider.Shutdown(ctx)
			}()
		}
	}

	// Redis is optional: without it the engine runs with an unavailable
	// learning store and a fail-open rate limiter.
	var (
		store       learning.Store = learning.Unavailable{}
		stats       server.StatsProvider
		healthRedis *core.RedisClient
	)
	dataRedis, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  cfg.RedisURL,
		DB:        core.RedisDBLearning,
		Namespace: cfg.LearningNamespace,
		Logger:    logger,
	})
	if err != nil {
		logger.Warn("Learning store unavailable, running degraded", map[string]interface{}{
			"error": err,
		})
	} else {
		defer dataRedis.Close()
		healthRedis = dataRedis

		limitRedis, err := core.NewRedisClient(core.RedisClientOptions{
			RedisURL:  cfg.RedisURL,
			DB:        core.RedisDBRateLimiting,
			Namespace: cfg.RateLimitNamespace,
			Logger:    logger,
		})
		if err != nil {
			logger.Warn("Rate limit store unavailable, failing open", map[string]interface{}{
				"error": err,
			})
		} else {
			defer limitRedis.Close()
		}

		redisStore := learning.NewRedisStore(learning.RedisStoreOptions{
			Data:      dataRedis,
			RateLimit: limitRedis,
			Logger:    logger,
		})
		store = redisStore
		stats = redisStore
	}

	var retriever retrieval.Retriever = retrieval.NoOp{}
	if cfg.RetrievalURL != "" {
		retriever = retrieval.NewHTTPRetriever(cfg.RetrievalURL, nil, logger)
	}

	resolver := location.NewResolver(location.ResolverOptions{
		Store:      store,
		IndiaPost:  location.NewIndiaPostClient(nil, logger),
		Geocoder:   location.NewGeocodeClient(nil, logger, nil),
		DefaultLat: cfg.DefaultLatitude,
		DefaultLon: cfg.DefaultLongitude,
		Logger:     logger,
	})

	orchestrator := orchestration.NewOrchestrator(orchestration.OrchestratorOptions{
		Soil: agents.NewSoilAgent(agents.SoilAgentOptions{
			Store:     store,
			Retriever: retriever,
			Logger:    logger,
		}),
		Weather: agents.NewWeatherAgent(agents.WeatherAgentOptions{
			Resolver: resolver,
			Fetcher:  weatherapi.NewClient(weatherapi.ClientOptions{Logger: logger}),
			Store:    store,
			Logger:   logger,
		}),
		Planner: agents.NewCropPlanner(agents.CropPlannerOptions{
			Retriever: retriever,
			Logger:    logger,
		}),
		Logger:    logger,
		Telemetry: tracer,
	})

	limiter := ratelimit.NewLimiter(ratelimit.LimiterOptions{
		Store:       store,
		MaxRequests: cfg.MaxRequestsPerWindow,
		Window:      time.Duration(cfg.RateLimitWindowSecs) * time.Second,
		Logger:      logger,
	})

	srv := server.New(server.Options{
		Orchestrator: orchestrator,
		Limiter:      limiter,
		Stats:        stats,
		HealthRedis:  healthRedis,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Advisory service listening", map[string]interface{}{
			"port": cfg.Port,
		})
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		logger.Info("Shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
