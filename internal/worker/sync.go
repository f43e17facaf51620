package worker

import (
	"context"
	"net/http"

	"github.com/vendora/vendora-edge/internal/conf"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
)

// Background-sync tags, one per mutation category.
const (
	SyncTagOrders   = "sync-orders"
	SyncTagProducts = "sync-products"
)

// SyncTags lists every known sync tag.
func SyncTags() []string {
	return []string{SyncTagOrders, SyncTagProducts}
}

// categoryForTag resolves a sync tag to its queue category and replay
// endpoint.
func (w *Worker) categoryForTag(tag string) (string, conf.EndpointSettings, bool) {
	switch tag {
	case SyncTagOrders:
		return CategoryOrders, w.cfg.Sync.Orders, true
	case SyncTagProducts:
		return CategoryProducts, w.cfg.Sync.Products, true
	default:
		return "", conf.EndpointSettings{}, false
	}
}

// ReplaySync replays the pending-write queue for one sync tag.
//
// Items are attempted strictly in order. An item that reaches the server
// (any HTTP status) is consumed: a rejection is the server's final word
// and retrying it would never succeed. The first transport failure stops
// the batch; the failed item and everything after it stay queued for the
// next sync window, so partial replay never loses writes.
func (w *Worker) ReplaySync(ctx context.Context, tag string) error {
	category, endpoint, ok := w.categoryForTag(tag)
	if !ok {
		return errors.Newf("unknown sync tag %q", tag).
			Component("worker").
			Category(errors.CategoryValidation).
			Build()
	}

	pending, err := w.readQueue(ctx, category)
	if err != nil {
		return errors.New(err).
			Component("worker").
			Category(errors.CategorySync).
			Context("tag", tag).
			Build()
	}
	if len(pending) == 0 {
		return nil
	}

	delivered := 0
	var replayErr error
	for i := range pending {
		item := &pending[i]
		target := w.cfg.Upstream.JoinPath(replayPath(endpoint, item)).String()
		header := http.Header{}
		if item.ContentType != "" {
			header.Set("Content-Type", item.ContentType)
		}

		resp, fetchErr := w.fetch(ctx, endpoint.Method, target, header, item.Body, metrics.StrategyBypass)
		if fetchErr != nil {
			// Transport failure: keep this item and the remainder queued.
			w.recordReplay(tag, metrics.OutcomeRequeued, len(pending)-i)
			replayErr = errors.New(fetchErr).
				Component("worker").
				Category(errors.CategorySync).
				Context("tag", tag).
				Context("replayed", delivered).
				Context("remaining", len(pending)-i).
				Build()
			pending = pending[i:]
			break
		}

		delivered++
		if resp.Status >= 400 {
			w.recordReplay(tag, metrics.OutcomeFailed, 1)
			w.log.Warn("queued write rejected by server",
				logger.String("tag", tag),
				logger.String("id", item.ID),
				logger.Int("status", resp.Status))
		} else {
			w.recordReplay(tag, metrics.OutcomeDelivered, 1)
		}
	}

	if replayErr == nil {
		pending = nil
	}

	// The slot rewrite below races with queueWrite: a write queued between
	// readQueue above and this point is overwritten. The category slot is
	// last-write-wins, so the window is accepted rather than locked.
	if len(pending) == 0 {
		if err := w.store.ClearOfflineData(ctx, category); err != nil {
			w.log.Error("failed to clear replayed queue",
				logger.String("tag", tag),
				logger.Error(err))
		}
	} else if err := w.store.WriteOfflineData(ctx, category, pending); err != nil {
		w.log.Error("failed to persist remaining queue",
			logger.String("tag", tag),
			logger.Int("remaining", len(pending)),
			logger.Error(err))
	}

	if replayErr != nil {
		return replayErr
	}
	w.log.Info("sync replay completed",
		logger.String("tag", tag),
		logger.Int("delivered", delivered))
	return nil
}

// PendingCount returns the queue depth for one category.
func (w *Worker) PendingCount(ctx context.Context, category string) (int, error) {
	pending, err := w.readQueue(ctx, category)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// PendingCounts returns queue depths for every category.
func (w *Worker) PendingCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 2)
	for _, category := range []string{CategoryOrders, CategoryProducts} {
		n, err := w.PendingCount(ctx, category)
		if err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, nil
}

// replayPath builds the endpoint path for one queued item.
func replayPath(endpoint conf.EndpointSettings, item *PendingWrite) string {
	if endpoint.PerItem && item.ItemID != "" {
		return endpoint.Path + "/" + item.ItemID
	}
	return endpoint.Path
}

func (w *Worker) recordReplay(tag, outcome string, n int) {
	if w.metrics != nil {
		w.metrics.SyncReplaysTotal.WithLabelValues(tag, outcome).Add(float64(n))
	}
}
