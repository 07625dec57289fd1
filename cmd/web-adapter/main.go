package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"bookrec/internal/app"
	"bookrec/internal/config"
	"bookrec/internal/delivery"
	"bookrec/internal/logger"
	"bookrec/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default $BOOKREC_CONFIG or bookrec.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(config.Default().Logging).WithError(err).Fatal("config.load")
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := app.Build(ctx, cfg, log)
	defer p.Close()

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
		if ttl := cfg.RateLimit.IdleTTL; ttl > 0 {
			go limiter.Run(ctx, ttl/2, ttl)
		}
	}

	srv := &http.Server{
		Addr: cfg.WebAdapter.Address(),
		Handler: (&delivery.Server{
			Log:         log,
			Recommender: p.Recommender,
			Timeout:     cfg.Weaviate.Timeout,
			Limiter:     limiter,
		}).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.WithField("addr", srv.Addr).Info("🌐 Web Adapter started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("failed to start web server")
	}
	log.Info("web adapter stopped")
}
