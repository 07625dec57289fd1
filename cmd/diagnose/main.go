package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bookrec/internal/config"
	"bookrec/internal/logger"
	"bookrec/internal/rpc"
	"bookrec/internal/storage/weaviate"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default $BOOKREC_CONFIG or bookrec.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)

	fmt.Println("🔍 === STARTING COMPONENT DIAGNOSTICS ===")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok := true

	// 1. Weaviate
	fmt.Printf("\n[1] Testing Weaviate (%s)...\n", cfg.Weaviate.URL)
	client := weaviate.New(cfg.Weaviate, log)
	if err := client.Ready(ctx); err != nil {
		fmt.Printf("❌ Weaviate is not ready: %v\n", err)
		ok = false
	} else if n, err := client.Count(ctx, client.ClassName()); err != nil {
		fmt.Printf("⚠️ WARNING. Ready, but class %s is unavailable: %v\n", client.ClassName(), err)
	} else {
		fmt.Printf("✅ PASS. Class %s holds %d objects\n", client.ClassName(), n)
	}

	// 2. Recommender
	fmt.Printf("\n[2] Testing Recommender (%s)...\n", cfg.Recommender.Address())
	if err := checkRecommender(ctx, cfg.Recommender.Address()); err != nil {
		fmt.Printf("❌ %v\n", err)
		ok = false
	} else {
		fmt.Println("✅ PASS. SERVING")
	}

	// 3. Web adapter
	fmt.Printf("\n[3] Testing Web Adapter (%s)...\n", cfg.WebAdapter.FullURL())
	if err := checkWeb(ctx, cfg.WebAdapter.FullURL()+"/health"); err != nil {
		fmt.Printf("❌ %v\n", err)
		ok = false
	} else {
		fmt.Println("✅ PASS. HTTP Status: 200")
	}

	fmt.Println("\n🏁 === DIAGNOSTICS COMPLETE ===")
	if !ok {
		os.Exit(1)
	}
}

func checkRecommender(ctx context.Context, addr string) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to recommender: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("recommender status %s", resp.GetStatus())
	}
	return nil
}

func checkWeb(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("web adapter failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("web adapter returned HTTP %d", resp.StatusCode)
	}
	return nil
}
