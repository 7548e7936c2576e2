package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/openquant/tidemark/internal/models"
)

// SaveInstrument creates or updates an instrument. A missing ID is assigned
// on first save and is immutable afterwards.
func (s *Store) SaveInstrument(ctx context.Context, inst *models.Instrument) error {
	if inst == nil {
		return errors.New("instrument is nil")
	}
	if inst.Ticker == "" || inst.Exchange == "" {
		return fmt.Errorf("instrument requires a ticker and exchange, got %q/%q", inst.Ticker, inst.Exchange)
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.Ticker = strings.ToUpper(inst.Ticker)
	inst.Exchange = strings.ToUpper(inst.Exchange)

	if err := s.db.Upsert(inst.ID, inst); err != nil {
		return fmt.Errorf("failed to save instrument %s: %w", inst.Identity(), err)
	}

	s.logger.Debug().Str("id", inst.ID).Str("identity", inst.Identity()).Msg("Instrument saved")
	return nil
}

// GetInstrument returns the instrument with the given ID, or nil when it does
// not exist.
func (s *Store) GetInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	var inst models.Instrument
	if err := s.db.Get(id, &inst); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get instrument %s: %w", id, err)
	}
	return &inst, nil
}

// FindByIdentity looks an instrument up by its external (ticker, exchange)
// pair. Returns nil without error when no match exists.
func (s *Store) FindByIdentity(ctx context.Context, ticker, exchange string) (*models.Instrument, error) {
	var results []models.Instrument
	query := badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)).
		And("Exchange").Eq(strings.ToUpper(exchange))
	if err := s.db.Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to find instrument %s.%s: %w", ticker, exchange, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// ListInstruments returns all instruments of the given class, sorted by
// external identity. When activeOnly is set, delisted instruments are
// excluded.
func (s *Store) ListInstruments(ctx context.Context, class models.InstrumentClass, activeOnly bool) ([]*models.Instrument, error) {
	var all []models.Instrument
	if err := s.db.Find(&all, badgerhold.Where("Class").Eq(class)); err != nil {
		return nil, fmt.Errorf("failed to list %s instruments: %w", class, err)
	}

	instruments := make([]*models.Instrument, 0, len(all))
	for i := range all {
		if activeOnly && !all[i].Active() {
			continue
		}
		instruments = append(instruments, &all[i])
	}

	slices.SortFunc(instruments, func(a, b *models.Instrument) int {
		return strings.Compare(a.Identity(), b.Identity())
	})

	return instruments, nil
}
