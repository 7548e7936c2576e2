package interfaces

import (
	"context"

	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// SeriesStore is the canonical append-only time-series store.
type SeriesStore interface {
	// InsertPoints persists a batch of points under the (kind, instrument,
	// date) uniqueness invariant. A key collision returns an error wrapping
	// badger.ErrDuplicatePoint and indicates a logic fault, not a transient
	// condition.
	InsertPoints(ctx context.Context, points []models.SeriesPoint) error

	// Series returns all points for one (instrument, kind) pair in
	// ascending date order, with cents-quoted values normalized to
	// currency units.
	Series(ctx context.Context, kind models.SeriesKind, instrumentID string) ([]models.SeriesPoint, error)

	// LastDate returns the maximum stored date for one (instrument, kind)
	// pair; ok is false when the instrument has no stored points of that
	// kind.
	LastDate(ctx context.Context, kind models.SeriesKind, instrumentID string) (last dates.Date, ok bool, err error)
}

// InstrumentStore is the tracked-instrument registry.
type InstrumentStore interface {
	SaveInstrument(ctx context.Context, inst *models.Instrument) error
	GetInstrument(ctx context.Context, id string) (*models.Instrument, error)

	// FindByIdentity looks an instrument up by its external (ticker,
	// exchange) pair. Returns nil without error when no match exists.
	FindByIdentity(ctx context.Context, ticker, exchange string) (*models.Instrument, error)

	// ListInstruments returns all instruments of the given class. When
	// activeOnly is set, delisted instruments are excluded.
	ListInstruments(ctx context.Context, class models.InstrumentClass, activeOnly bool) ([]*models.Instrument, error)
}

// Store combines the storage surfaces used by the sync and returns services.
type Store interface {
	SeriesStore
	InstrumentStore
}
