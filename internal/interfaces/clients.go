// Package interfaces defines the contracts between Tidemark's layers.
package interfaces

import (
	"context"

	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// HistoricalFetcher retrieves a dated row range for exactly one instrument.
type HistoricalFetcher interface {
	// GetHistory fetches rows of the given kind for one instrument over
	// [from, to]. A zero from defaults to the provider epoch, a zero to
	// defaults to today. An empty window yields an empty slice, not an
	// error.
	GetHistory(ctx context.Context, kind models.SeriesKind, exchange, ticker string, from, to dates.Date) ([]models.SeriesRow, error)
}

// BulkFetcher retrieves one day of data for many instruments on one exchange.
type BulkFetcher interface {
	// GetBulkDay fetches all requested tickers on one exchange for a single
	// day. An empty result signals a market holiday, not a failure.
	// Dividend series must not use this path.
	GetBulkDay(ctx context.Context, kind models.SeriesKind, exchange string, day dates.Date, tickers []string) ([]models.SeriesRow, error)
}

// Provider is the full data-provider client surface.
type Provider interface {
	HistoricalFetcher
	BulkFetcher
}
