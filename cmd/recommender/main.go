package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bookrec/internal/app"
	"bookrec/internal/config"
	"bookrec/internal/logger"
	"bookrec/internal/rpc"
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

	lis, err := net.Listen("tcp", cfg.Recommender.Address())
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(rpc.RequestIDInterceptor))
	rpc.Register(s, rpc.NewServer(p.Recommender))

	// сервис считается живым, только если векторная база отвечает
	hs := health.NewServer()
	status := healthpb.HealthCheckResponse_SERVING
	if err := p.Weaviate.Ready(ctx); err != nil {
		log.WithError(err).Warn("weaviate is not ready yet")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(rpc.ServiceName, status)
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		s.GracefulStop()
	}()

	log.WithField("addr", cfg.Recommender.Address()).Info("🚀 Recommender started")
	if err := s.Serve(lis); err != nil {
		log.WithError(err).Fatal("failed to serve")
	}
}
