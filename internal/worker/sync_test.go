package worker

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueItems seeds a category queue directly.
func queueItems(t *testing.T, w *Worker, category string, items []PendingWrite) {
	t.Helper()
	require.NoError(t, w.store.WriteOfflineData(t.Context(), category, items))
}

func orderItem(id string) PendingWrite {
	return PendingWrite{
		ID:          id,
		Method:      http.MethodPost,
		Path:        "/api/orders",
		ContentType: "application/json",
		Body:        json.RawMessage(`{"order":"` + id + `"}`),
		QueuedAt:    time.Now(),
	}
}

func TestReplaySync_DeliversAllAndClearsQueue(t *testing.T) {
	w := newTestWorker(t)
	ctx := t.Context()
	queueItems(t, w, CategoryOrders, []PendingWrite{orderItem("a"), orderItem("b")})

	var mu sync.Mutex
	var bodies []string
	httpmock.RegisterResponder(http.MethodPost, testUpstream+"/api/orders",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]string
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				return nil, err
			}
			mu.Lock()
			bodies = append(bodies, payload["order"])
			mu.Unlock()
			return httpmock.NewStringResponse(http.StatusCreated, "{}"), nil
		})

	require.NoError(t, w.ReplaySync(ctx, SyncTagOrders))

	assert.Equal(t, []string{"a", "b"}, bodies, "items replay strictly in queue order")
	n, err := w.PendingCount(ctx, CategoryOrders)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplaySync_TransportFailureKeepsRemainder(t *testing.T) {
	w := newTestWorker(t)
	ctx := t.Context()
	queueItems(t, w, CategoryOrders, []PendingWrite{orderItem("a"), orderItem("b"), orderItem("c")})

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testUpstream+"/api/orders",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusCreated, "{}"), nil
			}
			return nil, assert.AnError
		})

	err := w.ReplaySync(ctx, SyncTagOrders)
	require.Error(t, err, "a transport failure mid-batch surfaces")

	// "a" was delivered; "b" failed in transit and stays queued with "c".
	pending, readErr := w.readQueue(ctx, CategoryOrders)
	require.NoError(t, readErr)
	require.Len(t, pending, 2)
	assert.Equal(t, "b", pending[0].ID)
	assert.Equal(t, "c", pending[1].ID)
}

func TestReplaySync_ServerRejectionConsumesItem(t *testing.T) {
	w := newTestWorker(t)
	ctx := t.Context()
	queueItems(t, w, CategoryOrders, []PendingWrite{orderItem("a"), orderItem("b")})

	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testUpstream+"/api/orders",
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				// The server's final word; retrying would never succeed.
				return httpmock.NewStringResponse(http.StatusUnprocessableEntity, "{}"), nil
			}
			return httpmock.NewStringResponse(http.StatusCreated, "{}"), nil
		})

	require.NoError(t, w.ReplaySync(ctx, SyncTagOrders))

	assert.Equal(t, 2, calls, "the rejected item is consumed, not retried")
	n, err := w.PendingCount(ctx, CategoryOrders)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplaySync_PerItemEndpointAppendsID(t *testing.T) {
	w := newTestWorker(t)
	ctx := t.Context()
	queueItems(t, w, CategoryProducts, []PendingWrite{{
		ID:     "q-1",
		Method: http.MethodPut,
		Path:   "/api/products/42",
		ItemID: "42",
		Body:   json.RawMessage(`{"price":9}`),
	}})

	httpmock.RegisterResponder(http.MethodPut, testUpstream+"/api/products/42",
		httpmock.NewStringResponder(http.StatusOK, "{}"))

	require.NoError(t, w.ReplaySync(ctx, SyncTagProducts))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestReplaySync_EmptyQueueIsNoop(t *testing.T) {
	w := newTestWorker(t)
	require.NoError(t, w.ReplaySync(t.Context(), SyncTagOrders))
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestReplaySync_UnknownTag(t *testing.T) {
	w := newTestWorker(t)
	assert.Error(t, w.ReplaySync(t.Context(), "sync-unknown"))
}

func TestPendingCounts(t *testing.T) {
	w := newTestWorker(t)
	ctx := t.Context()
	queueItems(t, w, CategoryOrders, []PendingWrite{orderItem("a")})

	counts, err := w.PendingCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{CategoryOrders: 1, CategoryProducts: 0}, counts)
}

func TestItemIDFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		request  string
		endpoint string
		expected string
	}{
		{"trailing id", "/api/products/42", "/api/products", "42"},
		{"no id", "/api/products", "/api/products", ""},
		{"trailing slash", "/api/products/42/", "/api/products", "42"},
		{"nested id", "/api/products/bulk/42", "/api/products", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, itemIDFromPath(tt.request, tt.endpoint))
		})
	}
}
