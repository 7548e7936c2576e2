package sync

import (
	"context"
	"fmt"
	"slices"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

// Service drives a full synchronization cycle: resolve fetch windows, fetch
// concurrently, merge strictly-new rows into the canonical store.
type Service struct {
	provider       interfaces.Provider
	store          interfaces.Store
	logger         *common.Logger
	resolver       *WatermarkResolver
	orchestrator   *Orchestrator
	merger         *Merger
	bulkWindowDays int
}

// NewService wires the sync pipeline. maxParallel bounds concurrent
// per-instrument fetches; bulkWindowDays is the largest common window still
// served by the bulk endpoint under MethodAuto.
func NewService(provider interfaces.Provider, store interfaces.Store, logger *common.Logger, bulkWindowDays, maxParallel int) *Service {
	if bulkWindowDays < 0 {
		bulkWindowDays = 0
	}
	return &Service{
		provider:       provider,
		store:          store,
		logger:         logger,
		resolver:       NewWatermarkResolver(store, logger),
		orchestrator:   NewOrchestrator(provider, logger, maxParallel),
		merger:         NewMerger(store, logger),
		bulkWindowDays: bulkWindowDays,
	}
}

// UpdateOptions narrows an update run.
type UpdateOptions struct {
	From       dates.Date
	To         dates.Date
	Identities []string // restrict to an explicit subset, e.g. for testing
}

// UpdateOption configures an update run.
type UpdateOption func(*UpdateOptions)

// WithWindow overrides the per-instrument fetch window uniformly.
func WithWindow(from, to dates.Date) UpdateOption {
	return func(o *UpdateOptions) {
		o.From = from
		o.To = to
	}
}

// WithInstruments restricts the run to the given external identities
// ("BHP.AU").
func WithInstruments(identities ...string) UpdateOption {
	return func(o *UpdateOptions) {
		o.Identities = identities
	}
}

// UpdateAll synchronizes one series kind for the full instrument roster of
// the given class. Partial fetch failures complete the run with warnings; a
// merge integrity failure aborts it.
func (s *Service) UpdateAll(ctx context.Context, kind models.SeriesKind, class models.InstrumentClass, method models.FetchMethod, opts ...UpdateOption) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown series kind %d", int(kind))
	}
	if method == models.MethodBulk && !kind.BulkEligible() {
		return fmt.Errorf("series kind %s cannot be synchronized via the bulk endpoint", kind)
	}

	options := UpdateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	instruments, err := s.store.ListInstruments(ctx, class, true)
	if err != nil {
		return fmt.Errorf("failed to list %s instruments: %w", class, err)
	}
	if len(options.Identities) > 0 {
		instruments = filterByIdentity(instruments, options.Identities)
	}
	if len(instruments) == 0 {
		s.logger.Info().Str("kind", kind.String()).Str("class", class.String()).Msg("No instruments to update")
		return nil
	}

	tasks, err := s.resolver.ResolveTasks(ctx, kind, instruments, options.From, options.To)
	if err != nil {
		return fmt.Errorf("failed to resolve fetch windows: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	var rows []models.SeriesRow
	var failures int
	if s.useBulk(method, kind, tasks) {
		rows = s.fetchBulk(ctx, kind, tasks)
	} else {
		batch := s.orchestrator.Fetch(ctx, kind, tasks)
		rows = batch.Rows
		failures = len(batch.Failures)
	}

	stats, err := s.merger.Merge(ctx, kind, class, rows)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("kind", kind.String()).
		Str("class", class.String()).
		Int("instruments", len(tasks)).
		Int("failures", failures).
		Int("inserted", stats.Inserted).
		Msg("Synchronization run completed")

	return nil
}

// useBulk decides the fetch strategy. Bulk trades fewer round trips against
// provider-side limitations and only pays off for short common windows.
func (s *Service) useBulk(method models.FetchMethod, kind models.SeriesKind, tasks []models.FetchTask) bool {
	switch method {
	case models.MethodBulk:
		return true
	case models.MethodHistorical:
		return false
	}
	if !kind.BulkEligible() {
		return false
	}
	from, to := commonWindow(tasks)
	return from.DaysUntil(to) <= s.bulkWindowDays
}

// fetchBulk fetches the common window per exchange, one day at a time. An
// empty day is a market holiday; a failed day is logged and skipped, in line
// with the orchestrator's partial-failure policy.
func (s *Service) fetchBulk(ctx context.Context, kind models.SeriesKind, tasks []models.FetchTask) []models.SeriesRow {
	byExchange := make(map[string][]string)
	for _, task := range tasks {
		byExchange[task.Exchange] = append(byExchange[task.Exchange], task.Ticker)
	}
	from, to := commonWindow(tasks)

	var rows []models.SeriesRow
	for exchange, tickers := range byExchange {
		for day := from; !day.After(to); day = day.Add(1) {
			dayRows, err := s.provider.GetBulkDay(ctx, kind, exchange, day, tickers)
			if err != nil {
				s.logger.Warn().
					Str("exchange", exchange).
					Str("date", day.String()).
					Err(err).
					Msg("Bulk fetch failed")
				continue
			}
			rows = append(rows, dayRows...)
		}
	}
	return rows
}

// commonWindow returns the widest window covering every task.
func commonWindow(tasks []models.FetchTask) (from, to dates.Date) {
	for i, task := range tasks {
		if i == 0 || task.From.Before(from) {
			from = task.From
		}
		if i == 0 || task.To.After(to) {
			to = task.To
		}
	}
	return from, to
}

func filterByIdentity(instruments []*models.Instrument, identities []string) []*models.Instrument {
	filtered := make([]*models.Instrument, 0, len(identities))
	for _, inst := range instruments {
		if slices.Contains(identities, inst.Identity()) {
			filtered = append(filtered, inst)
		}
	}
	return filtered
}
