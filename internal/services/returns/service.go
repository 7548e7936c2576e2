// Package returns derives analytical views (returns, total-return series,
// outlier-cleaned series) from the canonical stored time series. It reads
// only from the store and is independent of the synchronization pipeline.
package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

// ErrMissingDividends is returned when a total-return computation finds no
// dividend series at all for an instrument expected to distribute. A
// size-zero payout on any given date is legitimate; a wholly-absent series is
// not.
var ErrMissingDividends = errors.New("missing dividend series for distributing instrument")

// View selects the derived series to compute.
type View int

const (
	ViewPrice View = iota
	ViewReturn
	ViewTotalReturn
	ViewTotalPrice
)

// ParseView parses a view name as accepted on the CLI.
func ParseView(s string) (View, error) {
	switch s {
	case "price":
		return ViewPrice, nil
	case "return":
		return ViewReturn, nil
	case "total_return":
		return ViewTotalReturn, nil
	case "total_price":
		return ViewTotalPrice, nil
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

func (v View) String() string {
	switch v {
	case ViewPrice:
		return "price"
	case ViewReturn:
		return "return"
	case ViewTotalReturn:
		return "total_return"
	case ViewTotalPrice:
		return "total_price"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

// Series is a dated numeric sequence.
type Series struct {
	Dates  []dates.Date
	Values []float64
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.Values) }

// Service computes derived views over the canonical store.
type Service struct {
	store   interfaces.Store
	logger  *common.Logger
	cleaner *Cleaner
}

// NewService creates a return-computation service over the given store.
func NewService(store interfaces.Store, logger *common.Logger) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		cleaner: NewCleaner(DefaultCleanerConfig(), logger),
	}
}

// Series computes the requested view of one instrument's stored series.
// Values arrive currency-unit-normalized from the store. When tidy is set,
// outlier cleaning is applied to the result.
func (s *Service) Series(ctx context.Context, inst *models.Instrument, kind models.SeriesKind, field string, view View, tidy bool) (*Series, error) {
	points, err := s.store.Series(ctx, kind, inst.ID)
	if err != nil {
		return nil, err
	}

	result := &Series{
		Dates:  make([]dates.Date, len(points)),
		Values: make([]float64, len(points)),
	}
	prices := make([]float64, len(points))
	for i, p := range points {
		result.Dates[i] = p.Date
		v, err := fieldValue(p, field)
		if err != nil {
			return nil, err
		}
		prices[i] = v
	}

	switch view {
	case ViewPrice:
		copy(result.Values, prices)

	case ViewReturn:
		fillReturns(result.Values, prices, result.Dates, nil)

	case ViewTotalReturn:
		dividends, err := s.dividendsByDate(ctx, inst)
		if err != nil {
			return nil, err
		}
		fillReturns(result.Values, prices, result.Dates, dividends)

	case ViewTotalPrice:
		dividends, err := s.dividendsByDate(ctx, inst)
		if err != nil {
			return nil, err
		}
		totalReturns := make([]float64, len(prices))
		fillReturns(totalReturns, prices, result.Dates, dividends)
		// Re-base the cumulative product so the series starts at the first
		// raw price and stays comparable to the plain price view.
		cum := 1.0
		for i := range prices {
			if i == 0 {
				result.Values[0] = prices[0]
				continue
			}
			cum *= totalReturns[i]
			result.Values[i] = prices[0] * cum
		}

	default:
		return nil, fmt.Errorf("unknown view %d", int(view))
	}

	if tidy {
		result.Values = s.cleaner.Clean(result.Values)
	}

	return result, nil
}

// fillReturns writes period-over-period returns into dst: the price change
// plus any dividend that fell on the date, relative to the prior price. The
// first element has no prior value and defaults to 1.0, making the series
// immediately usable in cumulative products. dividends may be nil for plain
// returns; a date with no entry contributes 0.
func fillReturns(dst, prices []float64, ds []dates.Date, dividends map[dates.Date]float64) {
	for i := range prices {
		if i == 0 {
			dst[0] = 1.0
			continue
		}
		div := 0.0
		if dividends != nil {
			div = dividends[ds[i]]
		}
		dst[i] = (prices[i] + div) / prices[i-1]
	}
}

// dividendsByDate loads an instrument's dividend series keyed by date.
// A wholly-absent series for a distributing instrument is a hard error;
// dividends found on a non-distributing instrument are used but flagged.
func (s *Service) dividendsByDate(ctx context.Context, inst *models.Instrument) (map[dates.Date]float64, error) {
	points, err := s.store.Series(ctx, models.KindDividend, inst.ID)
	if err != nil {
		return nil, err
	}

	if len(points) == 0 {
		if inst.Distributing {
			return nil, fmt.Errorf("%w: %s", ErrMissingDividends, inst.Identity())
		}
		return map[dates.Date]float64{}, nil
	}

	if !inst.Distributing {
		s.logger.Warn().
			Str("identity", inst.Identity()).
			Int("dividends", len(points)).
			Msg("Dividends found for instrument not flagged as distributing")
	}

	byDate := make(map[dates.Date]float64, len(points))
	for _, p := range points {
		byDate[p.Date] = p.Value
	}
	return byDate, nil
}

// fieldValue extracts one numeric field from a stored point.
func fieldValue(p models.SeriesPoint, field string) (float64, error) {
	switch field {
	case "open":
		return p.Open, nil
	case "high":
		return p.High, nil
	case "low":
		return p.Low, nil
	case "close":
		return p.Close, nil
	case "adjusted_close":
		return p.AdjClose, nil
	case "volume":
		return float64(p.Volume), nil
	}
	return 0, fmt.Errorf("unknown price field %q", field)
}
