package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/vendora-edge/internal/cachestore/repository"
	"github.com/vendora/vendora-edge/internal/errors"
)

// Pending-write categories. Each category is one offline-data slot and
// one background-sync tag.
const (
	CategoryOrders   = "orders"
	CategoryProducts = "products"
)

// PendingWrite is one deferred mutation awaiting replay.
type PendingWrite struct {
	ID          string          `json:"id"`
	Method      string          `json:"method"`
	Path        string          `json:"path"`
	ItemID      string          `json:"itemId,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Body        json.RawMessage `json:"body"`
	QueuedAt    time.Time       `json:"queuedAt"`
}

// syncCategoryFor maps a first-party write to its queue category. Only
// the two fixed mutation categories are deferrable; everything else
// propagates its failure.
func (w *Worker) syncCategoryFor(r *http.Request) (string, bool) {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return "", false
	}
	if strings.HasPrefix(r.URL.Path, w.cfg.Sync.Orders.Path) {
		return CategoryOrders, true
	}
	if strings.HasPrefix(r.URL.Path, w.cfg.Sync.Products.Path) {
		return CategoryProducts, true
	}
	return "", false
}

// queueWrite appends the failed write to its category slot.
func (w *Worker) queueWrite(ctx context.Context, category string, r *http.Request, body []byte) error {
	pending, err := w.readQueue(ctx, category)
	if err != nil {
		return err
	}

	entry := PendingWrite{
		ID:          uuid.NewString(),
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        json.RawMessage(body),
		QueuedAt:    time.Now(),
	}
	if category == CategoryProducts {
		entry.ItemID = itemIDFromPath(r.URL.Path, w.cfg.Sync.Products.Path)
	}
	pending = append(pending, entry)

	if err := w.store.WriteOfflineData(ctx, category, pending); err != nil {
		return errors.New(err).
			Component("worker").
			Category(errors.CategoryCache).
			Context("operation", "queue_write").
			Context("category", category).
			Build()
	}
	if w.metrics != nil {
		w.metrics.QueuedWritesTotal.WithLabelValues(category).Inc()
	}
	return nil
}

// readQueue loads the pending writes for a category; a missing slot is an
// empty queue.
func (w *Worker) readQueue(ctx context.Context, category string) ([]PendingWrite, error) {
	var pending []PendingWrite
	err := w.store.ReadOfflineData(ctx, category, &pending)
	if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
		return nil, err
	}
	return pending, nil
}

// itemIDFromPath extracts the trailing item ID from a per-item endpoint
// path, e.g. /api/products/42 -> "42".
func itemIDFromPath(requestPath, endpointPath string) string {
	rest := strings.TrimPrefix(requestPath, endpointPath)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return ""
	}
	return path.Base(rest)
}

// writeQueuedAck responds with the synthetic accepted-for-sync envelope.
func writeQueuedAck(rw http.ResponseWriter, category string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"queued": true,
		"tag":    category,
	})
}
