package eodhd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

// eodRowResponse represents one EOD bar as served by the history endpoint.
// Forex and index series share this shape.
type eodRowResponse struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

// dividendRowResponse represents one dividend as served by the div endpoint.
type dividendRowResponse struct {
	Date            string  `json:"date"`
	DeclarationDate string  `json:"declarationDate"`
	RecordDate      string  `json:"recordDate"`
	PaymentDate     string  `json:"paymentDate"`
	Period          string  `json:"period"`
	Value           float64 `json:"value"`
	UnadjustedValue float64 `json:"unadjustedValue"`
	Currency        string  `json:"currency"`
}

// GetHistory fetches a dated row range for exactly one instrument. A zero
// from defaults to the provider epoch, a zero to defaults to today. An empty
// response means the instrument was inactive across the window and yields an
// empty slice.
func (c *Client) GetHistory(ctx context.Context, kind models.SeriesKind, exchange, ticker string, from, to dates.Date) ([]models.SeriesRow, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown series kind %d", int(kind))
	}

	if from.IsZero() {
		from = dates.Epoch()
	}
	if to.IsZero() {
		to = dates.Today()
	}

	params := url.Values{}
	params.Set("from", from.String())
	params.Set("to", to.String())
	if kind != models.KindDividend {
		params.Set("period", "d")
		params.Set("order", "a")
	}

	path := fmt.Sprintf("/%s/%s.%s", kind.PathPrefix(), ticker, exchange)

	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var rows []models.SeriesRow
	if kind == models.KindDividend {
		rows, err = parseDividendRows(path, body)
	} else {
		rows, err = parseEODRows(path, body)
	}
	if err != nil {
		return nil, err
	}

	// A duplicate date within one instrument's single response implies a
	// provider data defect and is a hard error.
	seen := make(map[dates.Date]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.Date]; dup {
			return nil, fmt.Errorf("duplicate date %s in provider response for %s", row.Date, path)
		}
		seen[row.Date] = struct{}{}
	}

	return rows, nil
}

func parseEODRows(path string, body []byte) ([]models.SeriesRow, error) {
	var raw []eodRowResponse
	if err := decode(path, body, &raw); err != nil {
		return nil, err
	}

	rows := make([]models.SeriesRow, 0, len(raw))
	for _, r := range raw {
		date, err := dates.Parse(r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date in response for %s: %w", path, err)
		}
		rows = append(rows, models.SeriesRow{
			Date:     date,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			AdjClose: r.AdjustedClose,
			Volume:   r.Volume,
		})
	}
	return rows, nil
}

func parseDividendRows(path string, body []byte) ([]models.SeriesRow, error) {
	var raw []dividendRowResponse
	if err := decode(path, body, &raw); err != nil {
		return nil, err
	}

	rows := make([]models.SeriesRow, 0, len(raw))
	for _, r := range raw {
		date, err := dates.Parse(r.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date in response for %s: %w", path, err)
		}
		row := models.SeriesRow{
			Date:            date,
			Period:          r.Period,
			Currency:        r.Currency,
			Value:           r.Value,
			UnadjustedValue: r.UnadjustedValue,
		}
		// Secondary dates are frequently absent for older records.
		if d, err := dates.Parse(r.DeclarationDate); err == nil {
			row.DeclarationDate = d
		}
		if d, err := dates.Parse(r.RecordDate); err == nil {
			row.RecordDate = d
		}
		if d, err := dates.Parse(r.PaymentDate); err == nil {
			row.PaymentDate = d
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Ensure Client implements the provider surface.
var _ interfaces.Provider = (*Client)(nil)
