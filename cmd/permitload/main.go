// CSV ingest pipeline для permitsearch.
// Читает CSV с разрешениями на строительство и грузит его в сервис
// батчами через HTTP API. Поддерживает многопоточность.
//
// Использование:
//
//	permitload -file permits.csv -server http://localhost:8080 -workers 4
//
// Env vars:
//
//	PERMITSEARCH_API_KEY: bearer token (если на сервере включён auth)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	permitsearch "github.com/openpermit/permitsearch/pkg/client"
)

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		cancel()
		log.Fatal(err)
	}
}

type config struct {
	file          string
	server        string
	workers       int
	batchSize     int
	numericFields string
	timeout       time.Duration
}

func parseFlags() config {
	cfg := config{}
	flag.StringVar(&cfg.file, "file", "", "path to the permits CSV file (required)")
	flag.StringVar(&cfg.server, "server", "http://localhost:8080", "permitsearch server URL")
	flag.IntVar(&cfg.workers, "workers", 4, "number of parallel upsert workers")
	flag.IntVar(&cfg.batchSize, "batch-size", 100, "documents per batch upsert (server cap applies)")
	flag.StringVar(&cfg.numericFields, "numeric-fields", "",
		"comma-separated columns sent as numbers, e.g. valuation,issued_year")
	flag.DurationVar(&cfg.timeout, "timeout", 60*time.Second, "per-batch request timeout")
	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg config) error {
	if cfg.file == "" {
		return fmt.Errorf("-file is required")
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.batchSize < 1 {
		cfg.batchSize = 100
	}

	start := time.Now()

	f, err := os.Open(cfg.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.file, err)
	}
	defer func() { _ = f.Close() }()

	opts := []permitsearch.Option{permitsearch.WithTimeout(cfg.timeout)}
	if key := os.Getenv("PERMITSEARCH_API_KEY"); key != "" {
		opts = append(opts, permitsearch.WithAPIKey(key))
	}
	api, err := permitsearch.New(cfg.server, opts...)
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}

	// Проверяем доступность сервера до начала загрузки.
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := api.Ping(pingCtx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}

	reader, err := newCSVReader(f, splitFields(cfg.numericFields))
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.file, err)
	}

	ing := &ingester{
		api:       api,
		workers:   cfg.workers,
		batchSize: cfg.batchSize,
	}
	result, err := ing.Run(ctx, reader)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	rate := float64(result.Loaded) / elapsed.Seconds()
	log.Printf("DONE in %s", elapsed.Round(time.Second))
	log.Printf("  loaded: %d, failed: %d, skipped rows: %d", result.Loaded, result.Failed, result.Skipped)
	log.Printf("  rate: %.0f docs/sec", rate)

	if result.Failed > 0 {
		return fmt.Errorf("%d documents failed", result.Failed)
	}
	return nil
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
