package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/timshannon/badgerhold/v4"

	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// InsertPoints persists a batch of points under the (kind, instrument, date)
// uniqueness invariant. Points are keyed by SeriesPoint.Key, so a second
// point for the same triple fails the whole batch with ErrDuplicatePoint.
func (s *Store) InsertPoints(ctx context.Context, points []models.SeriesPoint) error {
	for _, p := range points {
		if err := s.db.Insert(p.Key(), p); err != nil {
			if errors.Is(err, badgerhold.ErrKeyExists) {
				return fmt.Errorf("%w: %s", ErrDuplicatePoint, p.Key())
			}
			return fmt.Errorf("failed to insert point %s: %w", p.Key(), err)
		}
	}
	return nil
}

// Series returns all points for one (instrument, kind) pair in ascending
// date order. Raw storage for cents-quoted instruments is in cents; values
// are normalized to currency units before they leave the store.
func (s *Store) Series(ctx context.Context, kind models.SeriesKind, instrumentID string) ([]models.SeriesPoint, error) {
	points, err := s.rawSeries(kind, instrumentID)
	if err != nil {
		return nil, err
	}

	inst, err := s.GetInstrument(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if inst != nil && inst.CentsQuoted {
		for i := range points {
			normalizePoint(&points[i])
		}
	}

	return points, nil
}

// LastDate returns the maximum stored date for one (instrument, kind) pair.
func (s *Store) LastDate(ctx context.Context, kind models.SeriesKind, instrumentID string) (dates.Date, bool, error) {
	points, err := s.rawSeries(kind, instrumentID)
	if err != nil {
		return dates.Date{}, false, err
	}
	if len(points) == 0 {
		return dates.Date{}, false, nil
	}
	return points[len(points)-1].Date, true, nil
}

func (s *Store) rawSeries(kind models.SeriesKind, instrumentID string) ([]models.SeriesPoint, error) {
	var points []models.SeriesPoint
	query := badgerhold.Where("InstrumentID").Eq(instrumentID).Index("InstrumentID").
		And("Kind").Eq(kind)
	if err := s.db.Find(&points, query); err != nil {
		return nil, fmt.Errorf("failed to query series %s/%s: %w", kind, instrumentID, err)
	}

	slices.SortFunc(points, func(a, b models.SeriesPoint) int {
		return a.Date.Compare(b.Date)
	})

	return points, nil
}

// normalizePoint converts cents-denominated values to currency units.
func normalizePoint(p *models.SeriesPoint) {
	p.Open /= 100
	p.High /= 100
	p.Low /= 100
	p.Close /= 100
	p.AdjClose /= 100
	p.Value /= 100
	p.UnadjustedValue /= 100
}
