package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"bookrec/internal/config"
	"bookrec/internal/loader"
	"bookrec/internal/logger"
	"bookrec/internal/storage/catalog"
	"bookrec/internal/storage/weaviate"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default $BOOKREC_CONFIG or bookrec.yaml)")
	csvPath := flag.String("csv", "", "Path to books CSV (overrides loader.csv_path)")
	recreate := flag.Bool("recreate", true, "Drop and recreate the class before importing")
	jsonReport := flag.Bool("json", false, "Print the report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(config.Default().Logging).WithError(err).Fatal("config.load")
	}
	log := logger.New(cfg.Logging)
	if *csvPath != "" {
		cfg.Loader.CSVPath = *csvPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, *recreate, log)
	if err != nil {
		log.WithError(err).Fatal("load failed")
	}
	printReport(report, *jsonReport)
	if report.Failed > 0 {
		os.Exit(2)
	}
}

func run(ctx context.Context, cfg *config.Config, recreate bool, log *logrus.Logger) (*loader.Report, error) {
	f, err := os.Open(cfg.Loader.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	records, err := loader.ReadCSV(f, cfg.Loader.Charset)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"path": cfg.Loader.CSVPath, "records": len(records)}).Info("csv.read")

	client := weaviate.New(cfg.Weaviate, log)
	class := client.ClassName()
	if err := client.Ready(ctx); err != nil {
		return nil, fmt.Errorf("weaviate is not ready: %w", err)
	}
	if err := loader.Provision(ctx, client, class, recreate, log); err != nil {
		return nil, err
	}

	validator, err := loader.NewValidator()
	if err != nil {
		return nil, err
	}
	uploader := loader.NewUploader(client, validator, loader.Options{
		Class:     class,
		BatchSize: cfg.Loader.BatchSize,
		Workers:   cfg.Loader.Workers,
		Progress:  os.Stderr,
	}, log)
	report := uploader.Upload(ctx, records)

	// обложки хранятся локально, в Weaviate их нет
	if cfg.Catalog.Path != "" {
		if err := fillCatalog(ctx, cfg.Catalog.Path, records); err != nil {
			log.WithError(err).Warn("catalog.update_failed")
		}
	}

	if n, err := client.Count(ctx, class); err == nil {
		log.WithFields(logrus.Fields{"class": class, "objects": n}).Info("import.done")
	} else {
		log.WithError(err).Warn("count failed")
	}

	if err := loader.PushMetrics(cfg.Loader.PushgatewayURL, class); err != nil {
		log.WithError(err).Warn("metrics push failed")
	}
	return report, nil
}

func fillCatalog(ctx context.Context, path string, records []loader.Record) error {
	store, err := catalog.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Upsert(ctx, loader.CatalogEntries(records))
}

func printReport(r *loader.Report, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}
	fmt.Printf("\nImported %d of %d books in %v (%d failed)\n", r.Succeeded, r.Total, r.Duration, r.Failed)
	for _, f := range r.Failures {
		fmt.Printf("  ❌ %s\n", f.Error())
	}
}
