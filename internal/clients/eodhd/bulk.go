package eodhd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// bulkRowResponse represents one row from the bulk last-day endpoint. The
// bulk payload identifies rows by code/exchange_short_name, which are renamed
// to the canonical ticker/exchange fields, and some exchanges type price and
// volume fields as strings.
type bulkRowResponse struct {
	Code              string      `json:"code"`
	ExchangeShortName string      `json:"exchange_short_name"`
	Date              string      `json:"date"`
	Open              flexFloat64 `json:"open"`
	High              flexFloat64 `json:"high"`
	Low               flexFloat64 `json:"low"`
	Close             flexFloat64 `json:"close"`
	AdjustedClose     flexFloat64 `json:"adjusted_close"`
	Volume            flexFloat64 `json:"volume"`
}

// GetBulkDay fetches one exchange, one day, many instruments at once.
// Dividend series are unreliable via this endpoint and are rejected. An
// empty response signals a market holiday, not a failure.
func (c *Client) GetBulkDay(ctx context.Context, kind models.SeriesKind, exchange string, day dates.Date, tickers []string) ([]models.SeriesRow, error) {
	if !kind.BulkEligible() {
		return nil, fmt.Errorf("series kind %s cannot be fetched via the bulk endpoint", kind)
	}

	params := url.Values{}
	params.Set("date", day.String())
	if len(tickers) > 0 {
		params.Set("symbols", strings.Join(tickers, ","))
	}

	path := fmt.Sprintf("/eod-bulk-last-day/%s", exchange)

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var raw []bulkRowResponse
	if err := decode(path, body, &raw); err != nil {
		return nil, err
	}

	rows := make([]models.SeriesRow, 0, len(raw))
	for _, r := range raw {
		date, err := dates.Parse(r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date in response for %s: %w", path, err)
		}
		exch := r.ExchangeShortName
		if exch == "" {
			exch = exchange
		}
		rows = append(rows, models.SeriesRow{
			Date:     date,
			Ticker:   r.Code,
			Exchange: exch,
			Open:     float64(r.Open),
			High:     float64(r.High),
			Low:      float64(r.Low),
			Close:    float64(r.Close),
			AdjClose: float64(r.AdjustedClose),
			Volume:   int64(r.Volume),
		})
	}

	return rows, nil
}
