package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bakehandler "badgekeeper/internal/bake/handler"
	bakemetrics "badgekeeper/internal/bake/metrics"
	httpapi "badgekeeper/internal/http"
	keyshandler "badgekeeper/internal/keys/handler"
	"badgekeeper/internal/platform/config"
	"badgekeeper/internal/platform/httpserver"
	"badgekeeper/internal/platform/logger"
	platformredis "badgekeeper/internal/platform/redis"
	verifyhandler "badgekeeper/internal/verify/handler"
	verifymetrics "badgekeeper/internal/verify/metrics"

	"badgekeeper/internal/bake"
	"badgekeeper/internal/issuer"
	issuermetrics "badgekeeper/internal/issuer/metrics"
	"badgekeeper/internal/keys"
	"badgekeeper/internal/proof"
	"badgekeeper/internal/status"
	"badgekeeper/internal/verify"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	resolverMetrics := issuermetrics.New()
	client := issuer.NewClient(cfg.Resolver, log, resolverMetrics)

	resolverOpts := []issuer.Option{
		issuer.WithAllowHTTP(cfg.Resolver.AllowHTTP),
	}
	probes := map[string]httpapi.HealthChecker{}
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("redis connection failed, resolving without a shared cache", "error", err)
		} else {
			defer redisClient.Close()
			resolverOpts = append(resolverOpts, issuer.WithCache(issuer.NewRedisCache(redisClient, cfg.Resolver.CacheTTL)))
			probes["redis"] = redisClient
		}
	} else {
		resolverOpts = append(resolverOpts, issuer.WithCache(issuer.NewMemoryCache(cfg.Resolver.CacheTTL)))
	}
	resolver := issuer.NewResolver(client, log, resolverMetrics, resolverOpts...)

	keyStore, err := keys.Load(cfg.KeyDir, cfg.BaseURL, log)
	if err != nil {
		log.Error("key store load failed", "dir", cfg.KeyDir, "error", err)
		os.Exit(1)
	}

	vMetrics := verifymetrics.New()
	verifier := proof.NewVerifier(issuer.NewKeyResolver(resolver), log)
	verifyService := verify.NewService(resolver, verifier, status.NewChecker(client), log, vMetrics)
	bakeService := bake.NewService(log, bakemetrics.New())

	router := httpapi.NewRouter(httpapi.Handlers{
		Verify: verifyhandler.New(verifyService, bakeService, log, vMetrics),
		Bake:   bakehandler.New(bakeService, log),
		Keys:   keyshandler.New(keyStore, log),
		Probes: probes,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting badgekeeper", "addr", cfg.Addr, "base_url", cfg.BaseURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
