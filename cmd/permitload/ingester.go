// Worker pool для параллельной загрузки документов.
// Reader -> батчи -> N workers -> BatchUpsert -> permitsearch.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	permitsearch "github.com/openpermit/permitsearch/pkg/client"
)

type ingester struct {
	api       *permitsearch.Client
	workers   int
	batchSize int
}

// loadResult: итоги загрузки.
type loadResult struct {
	Loaded   int64
	Failed   int64
	Skipped  int64
	Duration time.Duration
}

// Run reads the whole stream and upserts it in parallel batches.
func (ing *ingester) Run(ctx context.Context, reader *csvReader) (loadResult, error) {
	pool, err := ants.NewPool(ing.workers)
	if err != nil {
		return loadResult{}, fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var loaded, failed atomic.Int64

	submit := func(batch []permitsearch.Document) {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			ing.processBatch(ctx, batch, &loaded, &failed)
		}); err != nil {
			wg.Done()
			failed.Add(int64(len(batch)))
			log.Printf("submit batch: %v", err)
		}
	}

	start := time.Now()
	var batch []permitsearch.Document
	skipped, readErr := reader.ReadAll(func(doc permitsearch.Document) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		batch = append(batch, doc)
		if len(batch) >= ing.batchSize {
			submit(batch)
			batch = make([]permitsearch.Document, 0, ing.batchSize)
		}
		return true
	})
	if len(batch) > 0 {
		submit(batch)
	}

	wg.Wait()

	result := loadResult{
		Loaded:   loaded.Load(),
		Failed:   failed.Load(),
		Skipped:  int64(skipped),
		Duration: time.Since(start),
	}
	if readErr != nil {
		return result, readErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (ing *ingester) processBatch(
	ctx context.Context,
	batch []permitsearch.Document,
	loaded, failed *atomic.Int64,
) {
	resp, err := ing.api.BatchUpsert(ctx, batch)
	if err != nil {
		log.Printf("batch upsert error: %v", err)
		failed.Add(int64(len(batch)))
		return
	}

	loaded.Add(int64(resp.Succeeded))
	failed.Add(int64(resp.Failed))

	if resp.Failed > 0 {
		// Логируем первую ошибку из батча для диагностики.
		for _, r := range resp.Items {
			if !r.OK() {
				log.Printf("document %s failed: %s", r.ID, r.Error)
				break
			}
		}
	}

	total := loaded.Load()
	if total%1000 < int64(len(batch)) {
		log.Printf("progress: %d loaded, %d failed", total, failed.Load())
	}
}
