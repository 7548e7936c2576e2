package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
)

// fakeProvider records which endpoint each run used.
type fakeProvider struct {
	mu        sync.Mutex
	histCalls []string
	bulkCalls []string
	histRows  map[string][]models.SeriesRow
}

func (f *fakeProvider) GetHistory(ctx context.Context, kind models.SeriesKind, exchange, ticker string, from, to dates.Date) ([]models.SeriesRow, error) {
	identity := ticker + "." + exchange
	f.mu.Lock()
	f.histCalls = append(f.histCalls, identity)
	f.mu.Unlock()
	return f.histRows[identity], nil
}

func (f *fakeProvider) GetBulkDay(ctx context.Context, kind models.SeriesKind, exchange string, day dates.Date, tickers []string) ([]models.SeriesRow, error) {
	f.mu.Lock()
	f.bulkCalls = append(f.bulkCalls, day.String())
	f.mu.Unlock()
	rows := make([]models.SeriesRow, len(tickers))
	for i, ticker := range tickers {
		rows[i] = models.SeriesRow{Ticker: ticker, Exchange: exchange, Date: day, Close: 10, AdjClose: 10}
	}
	return rows, nil
}

func TestUpdateAll_AutoPicksBulkForShortWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inst := saveInstrument(t, store, "BHP", models.StatusActive)
	seedTrades(t, store, inst.ID, dates.Today().Add(-3).String())

	provider := &fakeProvider{}
	svc := NewService(provider, store, common.NewSilentLogger(), 5, 4)

	require.NoError(t, svc.UpdateAll(ctx, models.KindTrade, models.ClassEquity, models.MethodAuto))

	assert.Empty(t, provider.histCalls, "short catch-up window goes through the bulk endpoint")
	assert.Len(t, provider.bulkCalls, 3, "one bulk call per day in the window")

	points, err := store.Series(ctx, models.KindTrade, inst.ID)
	require.NoError(t, err)
	assert.Len(t, points, 4, "the seeded point plus one per fetched day")
}

func TestUpdateAll_AutoPicksHistoricalForFirstSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveInstrument(t, store, "BHP", models.StatusActive)

	provider := &fakeProvider{
		histRows: map[string][]models.SeriesRow{
			"BHP.AU": {tradeRow("BHP", "2021-01-04", 40)},
		},
	}
	svc := NewService(provider, store, common.NewSilentLogger(), 5, 4)

	require.NoError(t, svc.UpdateAll(ctx, models.KindTrade, models.ClassEquity, models.MethodAuto))

	assert.Len(t, provider.histCalls, 1, "an epoch-wide window never goes bulk")
	assert.Empty(t, provider.bulkCalls)
}

func TestUpdateAll_DividendsNeverGoBulk(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inst := saveInstrument(t, store, "BHP", models.StatusActive)

	// A fresh dividend watermark keeps the window short; the kind still
	// forces the per-instrument endpoint.
	require.NoError(t, store.InsertPoints(ctx, []models.SeriesPoint{{
		Kind:         models.KindDividend,
		InstrumentID: inst.ID,
		Date:         dates.Today().Add(-2),
		Value:        1.5,
	}}))

	provider := &fakeProvider{}
	svc := NewService(provider, store, common.NewSilentLogger(), 5, 4)

	require.NoError(t, svc.UpdateAll(ctx, models.KindDividend, models.ClassEquity, models.MethodAuto))

	assert.Len(t, provider.histCalls, 1)
	assert.Empty(t, provider.bulkCalls)
}

func TestUpdateAll_BulkMethodRejectedForDividends(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(&fakeProvider{}, store, common.NewSilentLogger(), 5, 4)

	err := svc.UpdateAll(context.Background(), models.KindDividend, models.ClassEquity, models.MethodBulk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk")
}

func TestUpdateAll_RestrictsToRequestedInstruments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveInstrument(t, store, "BHP", models.StatusActive)
	saveInstrument(t, store, "RIO", models.StatusActive)

	provider := &fakeProvider{}
	svc := NewService(provider, store, common.NewSilentLogger(), 5, 4)

	require.NoError(t, svc.UpdateAll(ctx, models.KindTrade, models.ClassEquity, models.MethodHistorical,
		WithInstruments("BHP.AU")))

	require.Len(t, provider.histCalls, 1)
	assert.Equal(t, "BHP.AU", provider.histCalls[0])
}

func TestUpdateAll_RerunInsertsNothing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	inst := saveInstrument(t, store, "BHP", models.StatusActive)

	provider := &fakeProvider{
		histRows: map[string][]models.SeriesRow{
			"BHP.AU": {
				tradeRow("BHP", "2021-01-04", 40),
				tradeRow("BHP", "2021-01-05", 41),
				tradeRow("BHP", "2021-01-06", 42),
			},
		},
	}
	svc := NewService(provider, store, common.NewSilentLogger(), 5, 4)

	require.NoError(t, svc.UpdateAll(ctx, models.KindTrade, models.ClassEquity, models.MethodHistorical))
	require.NoError(t, svc.UpdateAll(ctx, models.KindTrade, models.ClassEquity, models.MethodHistorical))

	points, err := store.Series(ctx, models.KindTrade, inst.ID)
	require.NoError(t, err)
	assert.Len(t, points, 3, "a replayed fetch changes nothing")
}
