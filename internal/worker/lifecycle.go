package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/vendora/vendora-edge/internal/cachestore"
	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
)

// Install populates the static partition for tag by fetching every route
// of the shell manifest. All-or-nothing: the first failed fetch (transport
// error or non-2xx status) fails the install and no activation happens,
// so a half-populated shell is never presented as success.
func (w *Worker) Install(ctx context.Context, tag string) error {
	parts := cachestore.Partitions(tag)
	for _, route := range w.cfg.Precache {
		target := w.cfg.Upstream.JoinPath(route).String()
		resp, err := w.fetch(ctx, http.MethodGet, target, nil, nil, metrics.StrategyCacheFirst)
		if err != nil {
			w.recordInstall(metrics.OutcomeError)
			return errors.New(err).
				Component("worker").
				Category(errors.CategoryNetwork).
				Context("operation", "install").
				Context("route", route).
				Build()
		}
		if resp.Status < 200 || resp.Status >= 300 {
			w.recordInstall(metrics.OutcomeError)
			return errors.Newf("precache route returned status %d", resp.Status).
				Component("worker").
				Category(errors.CategoryNetwork).
				Context("operation", "install").
				Context("route", route).
				Build()
		}
		entry := &entities.CachedResponse{
			Partition:  parts.Static,
			Method:     http.MethodGet,
			URL:        route,
			Status:     resp.Status,
			Body:       resp.Body,
			RecordedAt: time.Now(),
		}
		if err := entry.SetHeaders(resp.Header); err != nil {
			w.recordInstall(metrics.OutcomeError)
			return err
		}
		if err := w.store.Put(ctx, entry); err != nil {
			w.recordInstall(metrics.OutcomeError)
			return err
		}
	}
	w.recordInstall(metrics.OutcomeSuccess)
	w.log.Info("static shell installed",
		logger.String("generation", tag),
		logger.Int("routes", len(w.cfg.Precache)))
	return nil
}

// Activate makes tag the routing generation and deletes every partition
// outside its static/dynamic/legacy triple. Control is taken immediately;
// in-flight clients see the new routing on their next request.
func (w *Worker) Activate(ctx context.Context, tag string) error {
	parts := cachestore.Partitions(tag)
	purged, err := w.store.DeletePartitionsExcept(ctx, parts.Names())
	if err != nil {
		return errors.New(err).
			Component("worker").
			Category(errors.CategoryCache).
			Context("operation", "activate").
			Context("generation", tag).
			Build()
	}
	if w.metrics != nil && purged > 0 {
		w.metrics.PartitionsPurgedTotal.Add(float64(purged))
	}

	w.mu.Lock()
	w.parts = parts
	w.active = true
	if w.staged == tag {
		w.staged = ""
	}
	w.mu.Unlock()

	w.log.Info("generation activated",
		logger.String("generation", tag),
		logger.Int64("purged_entries", purged))
	return nil
}

// StartGeneration installs and immediately activates tag. This is the
// skip-waiting path used at startup: a successful install never waits for
// existing sessions to drain.
func (w *Worker) StartGeneration(ctx context.Context, tag string) error {
	if err := w.Install(ctx, tag); err != nil {
		return err
	}
	return w.Activate(ctx, tag)
}

// StageGeneration installs tag without activating it. The controller
// surfaces the staged generation as an update-available signal and calls
// PromoteStaged only on explicit confirmation.
func (w *Worker) StageGeneration(ctx context.Context, tag string) error {
	if err := w.Install(ctx, tag); err != nil {
		return err
	}
	w.mu.Lock()
	w.staged = tag
	w.mu.Unlock()
	w.log.Info("generation staged", logger.String("generation", tag))
	return nil
}

// PromoteStaged activates the staged generation, if any.
func (w *Worker) PromoteStaged(ctx context.Context) error {
	w.mu.RLock()
	staged := w.staged
	w.mu.RUnlock()
	if staged == "" {
		return errors.Newf("no staged generation to promote").
			Component("worker").
			Category(errors.CategoryValidation).
			Build()
	}
	return w.Activate(ctx, staged)
}

func (w *Worker) recordInstall(outcome string) {
	if w.metrics != nil {
		w.metrics.PrecacheInstallsTotal.WithLabelValues(outcome).Inc()
	}
}
