// Package worker implements the request-interception gateway: per-route
// caching strategies over the partitioned response store, the install/
// activate generation lifecycle, and replay of queued offline writes.
package worker

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vendora/vendora-edge/internal/cachestore"
	"github.com/vendora/vendora-edge/internal/conf"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
)

// ConnectivityReporter receives the outcome of every upstream transport
// attempt. The worker is the only source of connectivity signals in the
// process; the controller owns the resulting state.
type ConnectivityReporter interface {
	ReportOutcome(online bool)
}

// nopReporter discards outcomes; used when no controller is attached.
type nopReporter struct{}

func (nopReporter) ReportOutcome(bool) {}

// Config holds the routing and lifecycle settings the worker needs.
type Config struct {
	Upstream       *url.URL
	Generation     string
	APIPrefix      string
	BackendHost    string
	Precache       []string
	StaticSuffixes []string
	OfflinePath    string
	Sync           conf.SyncSettings
}

// ConfigFromSettings derives a worker Config from loaded settings.
func ConfigFromSettings(s *conf.Settings) (Config, error) {
	upstream, err := url.Parse(s.Upstream)
	if err != nil {
		return Config{}, errors.New(err).
			Component("worker").
			Category(errors.CategoryConfig).
			Context("upstream", s.Upstream).
			Build()
	}
	return Config{
		Upstream:       upstream,
		Generation:     s.Generation,
		APIPrefix:      s.APIPrefix,
		BackendHost:    s.BackendHost,
		Precache:       s.Precache,
		StaticSuffixes: s.StaticSuffixes,
		OfflinePath:    s.OfflinePath,
		Sync:           s.Sync,
	}, nil
}

// Worker is the gateway. It is safe for concurrent use; every intercepted
// request runs its strategy independently.
type Worker struct {
	cfg          Config
	store        *cachestore.Store
	client       *http.Client
	log          logger.Logger
	metrics      *metrics.Metrics
	connectivity ConnectivityReporter

	mu     sync.RWMutex
	parts  cachestore.PartitionSet
	active bool
	staged string
}

// Option customizes worker construction.
type Option func(*Worker)

// WithClient replaces the upstream HTTP client. Tests use this to attach
// a scripted transport.
func WithClient(client *http.Client) Option {
	return func(w *Worker) { w.client = client }
}

// WithConnectivityReporter attaches the controller's connectivity sink.
func WithConnectivityReporter(r ConnectivityReporter) Option {
	return func(w *Worker) { w.connectivity = r }
}

// New creates a Worker. It does not install or activate a generation;
// call StartGeneration.
func New(cfg Config, store *cachestore.Store, log logger.Logger, m *metrics.Metrics, opts ...Option) *Worker {
	w := &Worker{
		cfg:          cfg,
		store:        store,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          log,
		metrics:      m,
		connectivity: nopReporter{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Generation returns the active generation tag, or "" before activation.
func (w *Worker) Generation() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.active {
		return ""
	}
	return w.parts.Tag
}

// StagedGeneration returns the staged (installed but not yet activated)
// generation tag, or "".
func (w *Worker) StagedGeneration() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.staged
}

// partitions returns the active partition triple and whether the worker
// has activated at all.
func (w *Worker) partitions() (cachestore.PartitionSet, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.parts, w.active
}

// captured is a fully buffered response, either live from upstream or
// replayed from the store.
type captured struct {
	Status int
	Header http.Header
	Body   []byte
}

// fetch performs one upstream attempt and reports the transport outcome
// to the connectivity sink. Any HTTP response, 5xx included, is a
// transport success.
func (w *Worker) fetch(ctx context.Context, method, target string, header http.Header, body []byte, strategy string) (*captured, error) {
	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, errors.New(err).
			Component("worker").
			Category(errors.CategoryValidation).
			Context("target", target).
			Build()
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	if w.metrics != nil {
		w.metrics.UpstreamDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		w.connectivity.ReportOutcome(false)
		return nil, errors.New(err).
			Component("worker").
			Category(errors.CategoryNetwork).
			Context("target", target).
			Context("method", method).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()
	w.connectivity.ReportOutcome(true)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(err).
			Component("worker").
			Category(errors.CategoryNetwork).
			Context("target", target).
			Context("operation", "read_body").
			Build()
	}
	return &captured{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   data,
	}, nil
}

// resolveTarget maps an intercepted request to the upstream URL to fetch.
// Proxy-style absolute URLs (backend-as-a-service calls) are used as-is;
// origin-relative requests are resolved against the configured upstream.
func (w *Worker) resolveTarget(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	ref := &url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery}
	return w.cfg.Upstream.ResolveReference(ref).String()
}

// requestKey normalizes the request identity used as a cache key.
func requestKey(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}
