package worker

import (
	"context"
	"io"
	"net/http"

	"github.com/vendora/vendora-edge/internal/logger"
	"github.com/vendora/vendora-edge/internal/observability/metrics"
)

// maxQueuedBodyBytes bounds how large a deferred write payload may be.
const maxQueuedBodyBytes = 4 << 20

// strategyFunc runs one routing strategy to completion.
type strategyFunc func(ctx context.Context, r *http.Request) (*captured, error)

// ServeHTTP intercepts one application request and satisfies it per the
// routing table. Every path resolves to a response or a propagated
// upstream failure; a request is never silently dropped.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if _, active := w.partitions(); !active {
		// Before a generation activates the gateway has no routing rules;
		// equivalent to the request not being intercepted at all.
		w.passthrough(rw, r)
		return
	}

	switch w.classify(r) {
	case decideBypass:
		w.passthrough(rw, r)
	case decideNetworkFirst:
		w.serveStrategy(rw, r, w.networkFirst)
	case decideCacheFirst:
		w.serveStrategy(rw, r, w.cacheFirst)
	case decideNavigation:
		w.serveStrategy(rw, r, w.navigate)
	}
}

// serveStrategy runs a routing strategy and writes its result.
func (w *Worker) serveStrategy(rw http.ResponseWriter, r *http.Request, run strategyFunc) {
	resp, err := run(r.Context(), r)
	if err != nil {
		// No fallback applied; propagate as a failed upstream request.
		http.Error(rw, "upstream request failed", http.StatusBadGateway)
		return
	}
	writeCaptured(rw, resp)
}

// passthrough forwards a request untouched, except for first-party writes
// that fail at the transport layer: those are appended to their
// pending-write category and acknowledged with a synthetic 202.
func (w *Worker) passthrough(rw http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		// Read one byte past the cap so truncation is detectable;
		// forwarding a silently cut-off write would corrupt it upstream.
		data, err := io.ReadAll(io.LimitReader(r.Body, maxQueuedBodyBytes+1))
		if err != nil {
			http.Error(rw, "failed to read request body", http.StatusBadRequest)
			return
		}
		if len(data) > maxQueuedBodyBytes {
			http.Error(rw, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		body = data
	}

	resp, err := w.fetch(r.Context(), r.Method, w.resolveTarget(r), r.Header, body, metrics.StrategyBypass)
	if err == nil {
		w.recordRequest(metrics.StrategyBypass, metrics.OutcomeNetwork)
		writeCaptured(rw, resp)
		return
	}

	if tag, ok := w.syncCategoryFor(r); ok {
		queueErr := w.queueWrite(r.Context(), tag, r, body)
		if queueErr == nil {
			w.recordRequest(metrics.StrategyBypass, metrics.OutcomeQueued)
			writeQueuedAck(rw, tag)
			return
		}
		w.log.Error("failed to queue offline write",
			logger.String("tag", tag),
			logger.String("path", r.URL.Path),
			logger.Error(queueErr))
	}
	w.recordRequest(metrics.StrategyBypass, metrics.OutcomeError)
	http.Error(rw, "upstream request failed", http.StatusBadGateway)
}

// writeCaptured writes a buffered response to the client.
func writeCaptured(rw http.ResponseWriter, resp *captured) {
	header := rw.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	rw.WriteHeader(resp.Status)
	_, _ = rw.Write(resp.Body)
}
