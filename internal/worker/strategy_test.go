package worker

import (
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
)

// activate brings a worker to the active state without touching the
// network beyond the shell routes.
func activate(t *testing.T, w *Worker, tag string) {
	t.Helper()
	registerShell(w.cfg.Precache)
	require.NoError(t, w.StartGeneration(t.Context(), tag))
}

func TestNetworkFirst_CachesLiveResponse(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/products",
		httpmock.NewStringResponder(http.StatusOK, `[{"sku":"sku-1"}]`))

	req := newGetRequest(t, "/api/products", nil)
	resp, err := w.networkFirst(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"sku":"sku-1"}]`, string(resp.Body))

	cached, err := w.store.Match(t.Context(), "vendora-dynamic-v2", http.MethodGet, "/api/products")
	require.NoError(t, err)
	assert.Equal(t, resp.Body, cached.Body)
}

func TestNetworkFirst_FallsBackToCacheWhenOffline(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	// Warm the dynamic partition, then take the endpoint offline.
	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/products",
		httpmock.NewStringResponder(http.StatusOK, `[{"sku":"sku-1"}]`))
	req := newGetRequest(t, "/api/products", nil)
	_, err := w.networkFirst(t.Context(), req)
	require.NoError(t, err)

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/products",
		httpmock.NewErrorResponder(assert.AnError))

	resp, err := w.networkFirst(t.Context(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sku":"sku-1"}]`, string(resp.Body))
}

func TestNetworkFirst_UncachedNonNavigationPropagatesError(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/never-seen",
		httpmock.NewErrorResponder(assert.AnError))

	req := newGetRequest(t, "/api/never-seen", nil)
	_, err := w.networkFirst(t.Context(), req)
	assert.Error(t, err)
}

func TestNetworkFirst_UncachedNavigationGetsOfflineDocument(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/report",
		httpmock.NewErrorResponder(assert.AnError))

	// A navigation that classified network-first still degrades gracefully.
	req := newGetRequest(t, "/api/report", http.Header{"Accept": {"text/html"}})
	resp, err := w.networkFirst(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("shell:/offline.html"), resp.Body)
}

func TestNetworkFirst_ServerErrorServedNotCachedOver(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/api/flaky",
		httpmock.NewStringResponder(http.StatusBadGateway, "bad upstream"))

	// 5xx is a transport success: served live, not replaced by cache.
	req := newGetRequest(t, "/api/flaky", nil)
	resp, err := w.networkFirst(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
}

func TestCacheFirst_ServesPrecachedAssetWithoutNetwork(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	require.NoError(t, w.store.Put(t.Context(), &entities.CachedResponse{
		Partition: "vendora-static-v2",
		Method:    http.MethodGet,
		URL:       "/assets/app.js",
		Status:    http.StatusOK,
		Body:      []byte("console.log(1)"),
	}))

	// No responder for the asset: a network attempt would error.
	req := newGetRequest(t, "/assets/app.js", nil)
	resp, err := w.cacheFirst(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("console.log(1)"), resp.Body)
}

func TestCacheFirst_MissPopulatesFromNetwork(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/assets/app.css",
		httpmock.NewStringResponder(http.StatusOK, "body{}"))

	req := newGetRequest(t, "/assets/app.css", nil)
	resp, err := w.cacheFirst(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("body{}"), resp.Body)

	cached, err := w.store.Match(t.Context(), "vendora-static-v2", http.MethodGet, "/assets/app.css")
	require.NoError(t, err)
	assert.Equal(t, []byte("body{}"), cached.Body)
}

func TestCacheFirst_MissWithoutNetworkPropagates(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/assets/gone.png",
		httpmock.NewErrorResponder(assert.AnError))

	req := newGetRequest(t, "/assets/gone.png", nil)
	_, err := w.cacheFirst(t.Context(), req)
	assert.Error(t, err)
}

func TestNavigate_ServesLiveResponse(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/dashboard",
		httpmock.NewStringResponder(http.StatusOK, "<html>dash</html>"))

	req := newGetRequest(t, "/dashboard", http.Header{"Accept": {"text/html"}})
	resp, err := w.navigate(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>dash</html>"), resp.Body)
}

func TestNavigate_OfflineFallsBackToOfflineDocument(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/dashboard",
		httpmock.NewErrorResponder(assert.AnError))

	req := newGetRequest(t, "/dashboard", http.Header{"Accept": {"text/html"}})
	resp, err := w.navigate(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("shell:/offline.html"), resp.Body)
}

func TestNavigate_FallsBackToRootWhenOfflineDocumentMissing(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	// Remove the offline document from the static partition.
	require.NoError(t, w.store.Delete(t.Context(), "vendora-static-v2", http.MethodGet, "/offline.html"))

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/dashboard",
		httpmock.NewErrorResponder(assert.AnError))

	req := newGetRequest(t, "/dashboard", http.Header{"Accept": {"text/html"}})
	resp, err := w.navigate(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, []byte("shell:/"), resp.Body)
}

func TestNavigate_NoFallbackPropagatesError(t *testing.T) {
	w := newTestWorker(t)
	activate(t, w, "v2")

	require.NoError(t, w.store.Delete(t.Context(), "vendora-static-v2", http.MethodGet, "/offline.html"))
	require.NoError(t, w.store.Delete(t.Context(), "vendora-static-v2", http.MethodGet, "/"))
	// A purge clears the hot layer too.
	_, err := w.store.PurgePartition(t.Context(), "vendora-static-v2")
	require.NoError(t, err)

	httpmock.RegisterResponder(http.MethodGet, testUpstream+"/dashboard",
		httpmock.NewErrorResponder(assert.AnError))

	req := newGetRequest(t, "/dashboard", http.Header{"Accept": {"text/html"}})
	_, err = w.navigate(t.Context(), req)
	assert.Error(t, err)
}
