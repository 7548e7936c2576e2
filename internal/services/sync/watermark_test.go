package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/models"
	"github.com/openquant/tidemark/internal/storage/badger"
)

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveInstrument(t *testing.T, store *badger.Store, ticker string, status models.InstrumentStatus) *models.Instrument {
	t.Helper()
	inst := &models.Instrument{
		Ticker:   ticker,
		Exchange: "AU",
		Currency: "AUD",
		Class:    models.ClassEquity,
		Status:   status,
	}
	require.NoError(t, store.SaveInstrument(context.Background(), inst))
	return inst
}

func seedTrades(t *testing.T, store *badger.Store, instrumentID string, ds ...string) {
	t.Helper()
	points := make([]models.SeriesPoint, len(ds))
	for i, d := range ds {
		points[i] = models.SeriesPoint{
			Kind:         models.KindTrade,
			InstrumentID: instrumentID,
			Date:         dates.MustParse(d),
			Close:        10,
			AdjClose:     10,
		}
	}
	require.NoError(t, store.InsertPoints(context.Background(), points))
}

func TestResolveTasks_FirstSyncStartsAtEpoch(t *testing.T) {
	store := newTestStore(t)
	inst := saveInstrument(t, store, "BHP", models.StatusActive)
	resolver := NewWatermarkResolver(store, common.NewSilentLogger())

	tasks, err := resolver.ResolveTasks(context.Background(), models.KindTrade,
		[]*models.Instrument{inst}, dates.Date{}, dates.Date{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, dates.Epoch(), tasks[0].From)
	assert.Equal(t, dates.Today(), tasks[0].To)
}

func TestResolveTasks_ResumesAfterWatermark(t *testing.T) {
	store := newTestStore(t)
	inst := saveInstrument(t, store, "BHP", models.StatusActive)
	seedTrades(t, store, inst.ID, "2021-06-29", "2021-06-30")
	resolver := NewWatermarkResolver(store, common.NewSilentLogger())

	tasks, err := resolver.ResolveTasks(context.Background(), models.KindTrade,
		[]*models.Instrument{inst}, dates.Date{}, dates.Date{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, dates.MustParse("2021-07-01"), tasks[0].From,
		"window starts the day after the last stored date")
}

func TestResolveTasks_PerInstrumentWindows(t *testing.T) {
	store := newTestStore(t)
	fresh := saveInstrument(t, store, "NEW", models.StatusActive)
	caught := saveInstrument(t, store, "OLD", models.StatusActive)
	seedTrades(t, store, caught.ID, "2021-06-30")
	resolver := NewWatermarkResolver(store, common.NewSilentLogger())

	tasks, err := resolver.ResolveTasks(context.Background(), models.KindTrade,
		[]*models.Instrument{fresh, caught}, dates.Date{}, dates.Date{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, dates.Epoch(), tasks[0].From)
	assert.Equal(t, dates.MustParse("2021-07-01"), tasks[1].From)
}

func TestResolveTasks_ExplicitWindowWins(t *testing.T) {
	store := newTestStore(t)
	inst := saveInstrument(t, store, "BHP", models.StatusActive)
	seedTrades(t, store, inst.ID, "2021-06-30")
	resolver := NewWatermarkResolver(store, common.NewSilentLogger())

	from := dates.MustParse("2021-01-01")
	to := dates.MustParse("2021-03-31")
	tasks, err := resolver.ResolveTasks(context.Background(), models.KindTrade,
		[]*models.Instrument{inst}, from, to)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, from, tasks[0].From)
	assert.Equal(t, to, tasks[0].To)
}

func TestResolveTasks_SkipsDelisted(t *testing.T) {
	store := newTestStore(t)
	live := saveInstrument(t, store, "BHP", models.StatusActive)
	dead := saveInstrument(t, store, "DEAD", models.StatusDelisted)
	resolver := NewWatermarkResolver(store, common.NewSilentLogger())

	tasks, err := resolver.ResolveTasks(context.Background(), models.KindTrade,
		[]*models.Instrument{live, dead}, dates.Date{}, dates.Date{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "BHP", tasks[0].Ticker)
}
