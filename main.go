package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"elda-admin/internal/activity"
	"elda-admin/internal/apiclient"
	"elda-admin/internal/config"
	"elda-admin/internal/db"
	"elda-admin/internal/events"
	"elda-admin/internal/handlers"
	"elda-admin/internal/middleware"
	"elda-admin/internal/querycache"
	"elda-admin/internal/refresh"
	"elda-admin/internal/router"
	"elda-admin/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "elda-admin"

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup(telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store db.Store = db.NewMemoryStore()
	var health router.HealthFunc
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		store = db.NewPostgresStore(pool)
		health = pool.Ping
		log.Println("store: postgres")
	} else {
		log.Println("store: memory (DATABASE_URL not set)")
	}

	cache := querycache.New(querycache.Options{StaleTime: cfg.CacheStaleTime, GCTime: cfg.CacheGCTime}, nil)
	api := apiclient.New(cfg.APIBaseURL, apiclient.WithRetry(cfg.RetryAttempts, time.Second, cfg.RetryMaxDelay))
	deps := handlers.Deps{
		API:   api,
		Cache: cache,
		Gates: refresh.NewRegistry(refresh.Config{
			MinInterval:    cfg.RefreshMinInterval,
			ActivityWindow: cfg.RefreshActivityWindow,
			StaleAfter:     cfg.RefreshStaleAfter,
		}, nil),
		Sessions: activity.NewRegistry(nil),
		Audit:    store,
	}
	auth := middleware.NewAuthMiddleware(api, cache, cfg.JWTSecret, cfg.DefaultLocale, cfg.SupportedLocales)

	go cache.Run(ctx, cfg.CacheSweepInterval)
	go sweepSessions(ctx, deps, cfg.CacheSweepInterval, cfg.SessionIdleTimeout)

	if cfg.RabbitMQURL != "" {
		consumer := events.NewConsumer(cfg.RabbitMQURL, cache)
		consumer.Start(ctx)
		defer consumer.Wait()
	}

	r := gin.New()
	router.Setup(r, cfg, deps, auth, store, health)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s ...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// sweepSessions drops visibility trackers and refresh gates of sessions
// that have gone quiet.
func sweepSessions(ctx context.Context, deps handlers.Deps, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trackers := deps.Sessions.Sweep(idle)
			gates := deps.Gates.Sweep(idle)
			if trackers > 0 || gates > 0 {
				log.Printf("session sweep trackers=%d gates=%d", trackers, gates)
			}
		}
	}
}
