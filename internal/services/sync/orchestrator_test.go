package sync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// fakeFetcher serves canned per-identity responses.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	rows  map[string][]models.SeriesRow
	errs  map[string]error
}

func (f *fakeFetcher) GetHistory(ctx context.Context, kind models.SeriesKind, exchange, ticker string, from, to dates.Date) ([]models.SeriesRow, error) {
	identity := ticker + "." + exchange
	f.mu.Lock()
	f.calls = append(f.calls, identity)
	f.mu.Unlock()
	if err, ok := f.errs[identity]; ok {
		return nil, err
	}
	return f.rows[identity], nil
}

func task(ticker, exchange string) models.FetchTask {
	return models.FetchTask{
		Instrument: &models.Instrument{Ticker: ticker, Exchange: exchange},
		Ticker:     ticker,
		Exchange:   exchange,
		From:       dates.MustParse("2021-01-01"),
		To:         dates.MustParse("2021-01-05"),
	}
}

func rowsOn(ds ...string) []models.SeriesRow {
	rows := make([]models.SeriesRow, len(ds))
	for i, d := range ds {
		rows[i] = models.SeriesRow{Date: dates.MustParse(d), Close: 10}
	}
	return rows
}

func TestFetch_PartialFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		rows: map[string][]models.SeriesRow{
			"BHP.AU": rowsOn("2021-01-04", "2021-01-05"),
			"RIO.AU": rowsOn("2021-01-04"),
		},
		errs: map[string]error{
			"BAD.AU": errors.New("connection timed out"),
		},
	}
	o := NewOrchestrator(fetcher, common.NewSilentLogger(), 4)

	result := o.Fetch(context.Background(), models.KindTrade,
		[]models.FetchTask{task("BHP", "AU"), task("BAD", "AU"), task("RIO", "AU")})

	require.Len(t, result.Failures, 1, "exactly one failure recorded")
	assert.Equal(t, "BAD", result.Failures[0].Instrument.Ticker)
	assert.Len(t, result.Rows, 3, "successes survive a sibling failure")
	assert.False(t, result.Empty())
	assert.Len(t, fetcher.calls, 3, "every task was attempted")
}

func TestFetch_StampsIdentityAndSorts(t *testing.T) {
	fetcher := &fakeFetcher{
		rows: map[string][]models.SeriesRow{
			"RIO.AU": rowsOn("2021-01-05", "2021-01-04"),
			"BHP.AU": rowsOn("2021-01-04"),
		},
	}
	o := NewOrchestrator(fetcher, common.NewSilentLogger(), 4)

	result := o.Fetch(context.Background(), models.KindTrade,
		[]models.FetchTask{task("RIO", "AU"), task("BHP", "AU")})

	require.Len(t, result.Rows, 3)
	// Sorted by (date, ticker, exchange); every row carries its identity.
	assert.Equal(t, "BHP.AU", result.Rows[0].Identity())
	assert.Equal(t, dates.MustParse("2021-01-04"), result.Rows[0].Date)
	assert.Equal(t, "RIO.AU", result.Rows[1].Identity())
	assert.Equal(t, dates.MustParse("2021-01-04"), result.Rows[1].Date)
	assert.Equal(t, "RIO.AU", result.Rows[2].Identity())
	assert.Equal(t, dates.MustParse("2021-01-05"), result.Rows[2].Date)
}

func TestFetch_AllFailedYieldsEmptyResult(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[string]error{
			"BHP.AU": errors.New("timeout"),
			"RIO.AU": errors.New("timeout"),
		},
	}
	o := NewOrchestrator(fetcher, common.NewSilentLogger(), 4)

	result := o.Fetch(context.Background(), models.KindTrade,
		[]models.FetchTask{task("BHP", "AU"), task("RIO", "AU")})

	assert.True(t, result.Empty(), "total failure is reported, not raised")
	assert.Len(t, result.Failures, 2)
}

func TestFetch_EmptyTablesAreDiscarded(t *testing.T) {
	fetcher := &fakeFetcher{
		rows: map[string][]models.SeriesRow{
			"BHP.AU": rowsOn("2021-01-04"),
			"RIO.AU": nil, // instrument inactive across the window
		},
	}
	o := NewOrchestrator(fetcher, common.NewSilentLogger(), 4)

	result := o.Fetch(context.Background(), models.KindTrade,
		[]models.FetchTask{task("BHP", "AU"), task("RIO", "AU")})

	assert.Len(t, result.Rows, 1)
	assert.Empty(t, result.Failures, "an empty table is not a failure")
}

func TestFetch_NoTasks(t *testing.T) {
	o := NewOrchestrator(&fakeFetcher{}, common.NewSilentLogger(), 4)
	result := o.Fetch(context.Background(), models.KindTrade, nil)
	assert.True(t, result.Empty())
}
