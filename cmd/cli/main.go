package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"bookrec/internal/app"
	"bookrec/internal/config"
	"bookrec/internal/logger"
	"bookrec/internal/recommend"
	"bookrec/internal/rpc"
	"bookrec/internal/search"
)

type recommender interface {
	Recommend(ctx context.Context, raw string) (*recommend.Result, error)
}

func main() {
	configPath := flag.String("config", "", "Path to config file (default $BOOKREC_CONFIG or bookrec.yaml)")
	remote := flag.Bool("remote", false, "Ask the recommender service over gRPC instead of querying Weaviate directly")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *remote)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// в интерактивном режиме логи мешают, показываем только предупреждения
	if !cfg.CLI.Debug {
		cfg.Logging.Level = "warn"
	}
	log := logger.New(cfg.Logging)

	ctx := context.Background()
	var rec recommender
	if *remote {
		conn, err := grpc.NewClient(cfg.Recommender.Address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.WithError(err).Fatal("failed to connect to recommender")
		}
		defer conn.Close()
		rec = rpc.NewClient(conn)
	} else {
		p := app.Build(ctx, cfg, log)
		defer p.Close()
		rec = p.Recommender
	}

	if flag.NArg() > 0 {
		executeRequest(ctx, rec, strings.Join(flag.Args(), " "), cfg.Weaviate.Timeout)
		return
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.CLI.HistoryFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line, cfg.CLI.HistoryFile)

	fmt.Println("Book Recommendations Interactive Shell")
	fmt.Println("Describe a book you'd like to read; prefix with keyword: for exact words. Type exit to quit.")
	for {
		input, err := line.Prompt("bookrec> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return
		}
		line.AppendHistory(input)
		executeRequest(ctx, rec, input, cfg.Weaviate.Timeout)
	}
}

// loadConfig validates only what the chosen mode uses: -remote never talks to Weaviate.
func loadConfig(path string, remote bool) (*config.Config, error) {
	if !remote {
		return config.Load(path)
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

func executeRequest(ctx context.Context, rec recommender, query string, timeout time.Duration) {
	start := time.Now() // Старт таймера

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := rec.Recommend(ctx, query)
	if errors.Is(err, recommend.ErrEmptyQuery) {
		fmt.Println("Please type something to search for.")
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printResult(os.Stdout, res)
	fmt.Printf("\n⏱ Поиск занял: %v\n\n", time.Since(start))
}

func printResult(w io.Writer, res *recommend.Result) {
	if res.Fallback() {
		fmt.Fprintf(w, "\n%s\n", recommend.FallbackMessage)
		return
	}
	fmt.Fprintf(w, "\n[Mode]: %s\n", res.Mode)
	for _, it := range res.Items {
		fmt.Fprintln(w, strings.Repeat("-", 60))
		if res.Mode == search.ModeKeyword {
			fmt.Fprintf(w, "SCORE: %.4f\n", it.Score)
		} else {
			fmt.Fprintf(w, "DISTANCE SCORE: %.4f\n", it.Distance)
		}
		fmt.Fprintf(w, "%s\n", it.Title)
		if it.CoverURL != "" {
			fmt.Fprintf(w, "Cover: %s\n", it.CoverURL)
		}
		fmt.Fprintf(w, "\n%s\n", it.Description)
	}
}
