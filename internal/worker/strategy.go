package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
)

// networkFirst attempts the network, stores a clone of any response in
// the dynamic partition, and falls back to the stored copy on transport
// failure. Uncached navigations degrade to the offline document; anything
// else propagates the fetch error.
func (w *Worker) networkFirst(ctx context.Context, r *http.Request) (*captured, error) {
	key := requestKey(r)
	parts, _ := w.partitions()

	live, err := w.fetch(ctx, http.MethodGet, w.resolveTarget(r), r.Header, nil, metrics.StrategyNetworkFirst)
	if err == nil {
		w.storeClone(ctx, parts.Dynamic, key, live)
		w.recordRequest(metrics.StrategyNetworkFirst, metrics.OutcomeNetwork)
		return live, nil
	}

	cached, cacheErr := w.store.Match(ctx, parts.Dynamic, http.MethodGet, key)
	if cacheErr == nil {
		w.recordRequest(metrics.StrategyNetworkFirst, metrics.OutcomeCacheHit)
		return fromEntity(cached), nil
	}

	if isNavigation(r) {
		if fallback := w.offlineFallback(ctx); fallback != nil {
			w.recordRequest(metrics.StrategyNetworkFirst, metrics.OutcomeFallback)
			return fallback, nil
		}
	}
	w.recordRequest(metrics.StrategyNetworkFirst, metrics.OutcomeError)
	return nil, err
}

// cacheFirst serves the static partition's entry when present, populating
// it from the network on a miss. A miss with no network propagates the
// fetch error.
func (w *Worker) cacheFirst(ctx context.Context, r *http.Request) (*captured, error) {
	key := requestKey(r)
	parts, _ := w.partitions()

	cached, cacheErr := w.store.Match(ctx, parts.Static, http.MethodGet, key)
	if cacheErr == nil {
		w.recordRequest(metrics.StrategyCacheFirst, metrics.OutcomeCacheHit)
		return fromEntity(cached), nil
	}

	live, err := w.fetch(ctx, http.MethodGet, w.resolveTarget(r), r.Header, nil, metrics.StrategyCacheFirst)
	if err != nil {
		w.recordRequest(metrics.StrategyCacheFirst, metrics.OutcomeError)
		return nil, err
	}
	w.storeClone(ctx, parts.Static, key, live)
	w.recordRequest(metrics.StrategyCacheFirst, metrics.OutcomeNetwork)
	return live, nil
}

// navigate attempts the network and returns the response verbatim; on
// transport failure it falls back to the offline document, then the
// cached root, and only then propagates the error.
func (w *Worker) navigate(ctx context.Context, r *http.Request) (*captured, error) {
	live, err := w.fetch(ctx, http.MethodGet, w.resolveTarget(r), r.Header, nil, metrics.StrategyNavigation)
	if err == nil {
		w.recordRequest(metrics.StrategyNavigation, metrics.OutcomeNetwork)
		return live, nil
	}
	if fallback := w.offlineFallback(ctx); fallback != nil {
		w.recordRequest(metrics.StrategyNavigation, metrics.OutcomeFallback)
		return fallback, nil
	}
	w.recordRequest(metrics.StrategyNavigation, metrics.OutcomeError)
	return nil, err
}

// offlineFallback returns the offline document from the static partition,
// or the cached root if the offline document itself is missing, or nil.
func (w *Worker) offlineFallback(ctx context.Context) *captured {
	parts, active := w.partitions()
	if !active {
		return nil
	}
	for _, route := range []string{w.cfg.OfflinePath, "/"} {
		if route == "" {
			continue
		}
		cached, err := w.store.Match(ctx, parts.Static, http.MethodGet, route)
		if err == nil {
			return fromEntity(cached)
		}
	}
	return nil
}

// storeClone writes a copy of a live response into the given partition.
// Store failures degrade to "not cached": the live response is still
// served.
func (w *Worker) storeClone(ctx context.Context, partition, key string, resp *captured) {
	entry := &entities.CachedResponse{
		Partition:  partition,
		Method:     http.MethodGet,
		URL:        key,
		Status:     resp.Status,
		Body:       resp.Body,
		RecordedAt: time.Now(),
	}
	if err := entry.SetHeaders(resp.Header); err != nil {
		w.log.Warn("failed to encode response headers for cache",
			logger.String("url", key),
			logger.Error(err))
		return
	}
	if err := w.store.Put(ctx, entry); err != nil {
		w.log.Warn("failed to store response clone",
			logger.String("partition", partition),
			logger.String("url", key),
			logger.Error(err))
	}
}

// fromEntity converts a stored row back into a servable response.
// Undecodable headers degrade to an empty header set; the captured body
// and status are still served.
func fromEntity(e *entities.CachedResponse) *captured {
	header, err := e.DecodeHeaders()
	if err != nil {
		header = http.Header{}
	}
	return &captured{
		Status: e.Status,
		Header: header,
		Body:   e.Body,
	}
}

func (w *Worker) recordRequest(strategy, outcome string) {
	if w.metrics != nil {
		w.metrics.RequestsTotal.WithLabelValues(strategy, outcome).Inc()
	}
}
