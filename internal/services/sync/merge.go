package sync

import (
	"context"
	"fmt"
	"slices"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

// MergeStats summarizes the outcome of one merge call.
type MergeStats struct {
	Inserted       int // points persisted
	SkippedStale   int // rows at or before an instrument's watermark
	SkippedUnknown int // rows with no matching instrument
	SkippedDupes   int // duplicate (date, identity) rows within the batch
}

// Merger joins fetched rows to internal instrument identity and persists
// only rows strictly newer than each instrument's stored watermark.
type Merger struct {
	store  interfaces.Store
	logger *common.Logger
}

// NewMerger creates a merge engine over the canonical store.
func NewMerger(store interfaces.Store, logger *common.Logger) *Merger {
	return &Merger{store: store, logger: logger}
}

// Merge persists the new points of a fetched batch for the given instrument
// class. The stored last date per instrument is the authoritative duplicate
// guard, independent of whatever window the fetch originally requested: a
// stale or overly generous window can never re-insert old data. A uniqueness
// violation at persistence time is fatal and not retried.
func (m *Merger) Merge(ctx context.Context, kind models.SeriesKind, class models.InstrumentClass, rows []models.SeriesRow) (*MergeStats, error) {
	stats := &MergeStats{}
	if len(rows) == 0 {
		return stats, nil
	}

	// Include delisted instruments here: validating instrument existence is
	// an upstream responsibility, and rows already fetched should land.
	instruments, err := m.store.ListInstruments(ctx, class, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	byIdentity := make(map[string]*models.Instrument, len(instruments))
	for _, inst := range instruments {
		byIdentity[inst.Identity()] = inst
	}

	// Providers may return the same row twice within one page.
	type rowKey struct {
		identity string
		date     string
	}
	seen := make(map[rowKey]struct{}, len(rows))
	grouped := make(map[string][]models.SeriesRow)
	for _, row := range rows {
		inst, ok := byIdentity[row.Identity()]
		if !ok {
			stats.SkippedUnknown++
			m.logger.Warn().
				Str("identity", row.Identity()).
				Str("date", row.Date.String()).
				Msg("Fetched row matches no tracked instrument")
			continue
		}
		k := rowKey{identity: row.Identity(), date: row.Date.String()}
		if _, dup := seen[k]; dup {
			stats.SkippedDupes++
			continue
		}
		seen[k] = struct{}{}
		grouped[inst.ID] = append(grouped[inst.ID], row)
	}

	for instrumentID, instRows := range grouped {
		last, hasLast, err := m.store.LastDate(ctx, kind, instrumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to read watermark for %s: %w", instrumentID, err)
		}

		points := make([]models.SeriesPoint, 0, len(instRows))
		for _, row := range instRows {
			if hasLast && !row.Date.After(last) {
				stats.SkippedStale++
				continue
			}
			points = append(points, models.PointFromRow(kind, instrumentID, row))
		}
		if len(points) == 0 {
			continue
		}

		slices.SortFunc(points, func(a, b models.SeriesPoint) int {
			return a.Date.Compare(b.Date)
		})

		if err := m.store.InsertPoints(ctx, points); err != nil {
			return nil, fmt.Errorf("merge integrity failure for %s: %w", instrumentID, err)
		}
		stats.Inserted += len(points)
	}

	m.logger.Debug().
		Str("kind", kind.String()).
		Int("inserted", stats.Inserted).
		Int("stale", stats.SkippedStale).
		Int("unknown", stats.SkippedUnknown).
		Int("dupes", stats.SkippedDupes).
		Msg("Merge completed")

	return stats, nil
}
