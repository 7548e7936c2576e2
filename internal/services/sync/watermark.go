package sync

import (
	"context"

	"github.com/openquant/tidemark/internal/common"
	"github.com/openquant/tidemark/internal/dates"
	"github.com/openquant/tidemark/internal/interfaces"
	"github.com/openquant/tidemark/internal/models"
)

// WatermarkResolver computes the per-instrument fetch window from the last
// stored date of the relevant series kind, bounding every sync to only what
// changed.
type WatermarkResolver struct {
	store  interfaces.SeriesStore
	logger *common.Logger
}

// NewWatermarkResolver creates a resolver over the given series store.
func NewWatermarkResolver(store interfaces.SeriesStore, logger *common.Logger) *WatermarkResolver {
	return &WatermarkResolver{store: store, logger: logger}
}

// ResolveTasks produces one fetch task per instrument. An explicit from date
// applies uniformly; otherwise each instrument starts one day after its last
// stored date, or at the provider epoch on a first-ever sync. to defaults to
// today. Delisted instruments are skipped with a warning, never fetched.
func (r *WatermarkResolver) ResolveTasks(ctx context.Context, kind models.SeriesKind, instruments []*models.Instrument, from, to dates.Date) ([]models.FetchTask, error) {
	if to.IsZero() {
		to = dates.Today()
	}

	tasks := make([]models.FetchTask, 0, len(instruments))
	for _, inst := range instruments {
		if !inst.Active() {
			r.logger.Warn().
				Str("identity", inst.Identity()).
				Msg("Skipping delisted instrument")
			continue
		}

		taskFrom := from
		if taskFrom.IsZero() {
			last, ok, err := r.store.LastDate(ctx, kind, inst.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				// Overlap is tolerated: the merge engine re-filters
				// strictly against the stored watermark.
				taskFrom = last.Add(1)
			} else {
				taskFrom = dates.Epoch()
			}
		}

		tasks = append(tasks, models.FetchTask{
			Instrument: inst,
			Ticker:     inst.Ticker,
			Exchange:   inst.Exchange,
			From:       taskFrom,
			To:         to,
		})
	}

	return tasks, nil
}
