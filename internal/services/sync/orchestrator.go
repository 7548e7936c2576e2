// Package sync implements incremental synchronization of provider time
// series into the canonical store: per-instrument fetch windows, bounded
// concurrent fetching and strictly-after-watermark merging.
package sync

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

const defaultMaxParallel = 8

// BatchResult is the combined outcome of a fan-out fetch. Rows from all
// successful tasks are stamped with their instrument identity and sorted by
// (date, ticker, exchange); failed tasks are recorded, never propagated.
type BatchResult struct {
	Rows     []models.SeriesRow
	Failures []models.FetchFailure
}

// Empty reports whether the batch produced no rows at all. Callers treat
// this as "no update available", not as an error.
func (r *BatchResult) Empty() bool {
	return len(r.Rows) == 0
}

// Orchestrator fans per-instrument history fetches out across a task list,
// tolerating individual failures.
type Orchestrator struct {
	fetcher     interfaces.HistoricalFetcher
	logger      *common.Logger
	maxParallel int
}

// NewOrchestrator creates an orchestrator over the given fetcher. maxParallel
// bounds the number of simultaneously scheduled tasks; values below 1 fall
// back to the default.
func NewOrchestrator(fetcher interfaces.HistoricalFetcher, logger *common.Logger, maxParallel int) *Orchestrator {
	if maxParallel < 1 {
		maxParallel = defaultMaxParallel
	}
	return &Orchestrator{
		fetcher:     fetcher,
		logger:      logger,
		maxParallel: maxParallel,
	}
}

// Fetch runs every task concurrently and assembles one combined, sorted row
// set. One instrument's failure never fails the batch: the instrument is
// logged, recorded and dropped from the result. Total failure across the
// batch yields an empty result, not an error.
func (o *Orchestrator) Fetch(ctx context.Context, kind models.SeriesKind, tasks []models.FetchTask) *BatchResult {
	result := &BatchResult{}
	if len(tasks) == 0 {
		return result
	}

	sem := make(chan struct{}, o.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, task := range tasks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(task models.FetchTask) {
			defer wg.Done()
			defer func() { <-sem }()

			rows, err := o.fetcher.GetHistory(ctx, kind, task.Exchange, task.Ticker, task.From, task.To)
			if err != nil {
				o.logger.Warn().
					Str("kind", kind.String()).
					Str("identity", task.Ticker+"."+task.Exchange).
					Err(err).
					Msg("Instrument fetch failed")
				mu.Lock()
				result.Failures = append(result.Failures, models.FetchFailure{
					Instrument: task.Instrument,
					Err:        err,
				})
				mu.Unlock()
				return
			}
			if len(rows) == 0 {
				// Instrument inactive across the window; an empty table
				// must not enter the combined result.
				return
			}

			// The historical payload does not echo the symbol back, so it
			// is stamped here before the per-task boundary is discarded.
			for i := range rows {
				rows[i].Ticker = task.Ticker
				rows[i].Exchange = task.Exchange
			}

			mu.Lock()
			result.Rows = append(result.Rows, rows...)
			mu.Unlock()
		}(task)
	}

	wg.Wait()

	// The combined index must be sorted before any ordered slicing
	// downstream is valid.
	slices.SortFunc(result.Rows, func(a, b models.SeriesRow) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.Ticker, b.Ticker); c != 0 {
			return c
		}
		return strings.Compare(a.Exchange, b.Exchange)
	})

	if len(result.Failures) == len(tasks) && len(tasks) > 0 {
		o.logger.Warn().
			Str("kind", kind.String()).
			Int("tasks", len(tasks)).
			Msg("All fetch tasks failed")
	}

	return result
}
