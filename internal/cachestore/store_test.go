package cachestore

import (
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/cachestore/repository"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), time.Minute,
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))
	require.NoError(t, err)
	return store
}

func testResponse(partition, url string) *entities.CachedResponse {
	resp := &entities.CachedResponse{
		Partition: partition,
		Method:    http.MethodGet,
		URL:       url,
		Status:    http.StatusOK,
		Body:      []byte("hello"),
	}
	_ = resp.SetHeaders(http.Header{"Content-Type": {"text/html"}})
	return resp
}

func TestStore_PutAndMatch(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v2", "/dashboard")))

	got, err := store.Match(ctx, "vendora-static-v2", http.MethodGet, "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, []byte("hello"), got.Body)

	header, err := got.DecodeHeaders()
	require.NoError(t, err)
	assert.Equal(t, "text/html", header.Get("Content-Type"))
}

func TestStore_MatchMiss(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.Match(t.Context(), "vendora-static-v2", http.MethodGet, "/nope")
	assert.True(t, errors.Is(err, repository.ErrResponseNotFound))
}

func TestStore_PutUpserts(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-dynamic-v2", "/api/products")))

	updated := testResponse("vendora-dynamic-v2", "/api/products")
	updated.Status = http.StatusNoContent
	updated.Body = []byte("updated")
	require.NoError(t, store.Put(ctx, updated))

	got, err := store.Match(ctx, "vendora-dynamic-v2", http.MethodGet, "/api/products")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, got.Status)
	assert.Equal(t, []byte("updated"), got.Body)

	// The upsert replaced the row rather than adding a second one.
	n, err := store.CountPartition(ctx, "vendora-dynamic-v2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v2", "/orders")))
	require.NoError(t, store.Delete(ctx, "vendora-static-v2", http.MethodGet, "/orders"))

	_, err := store.Match(ctx, "vendora-static-v2", http.MethodGet, "/orders")
	assert.True(t, errors.Is(err, repository.ErrResponseNotFound))
}

func TestStore_PurgePartition(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v1", "/")))
	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v1", "/auth")))
	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v2", "/")))

	n, err := store.PurgePartition(ctx, "vendora-static-v1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	remaining, err := store.CountPartition(ctx, "vendora-static-v2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining)
}

func TestStore_DeletePartitionsExcept(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v1", "/")))
	require.NoError(t, store.Put(ctx, testResponse("vendora-dynamic-v1", "/api/orders")))
	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v2", "/")))
	require.NoError(t, store.Put(ctx, testResponse("vendora-dynamic-v2", "/api/orders")))

	keep := Partitions("v2").Names()
	n, err := store.DeletePartitionsExcept(ctx, keep)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	parts, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vendora-static-v2", "vendora-dynamic-v2"}, parts)
}

func TestStore_HotLayerServesRepeatedMatches(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, testResponse("vendora-static-v2", "/products")))

	// Delete from sqlite behind the facade's back; the hot layer still
	// holds the entry until it expires or a purge flushes it.
	require.NoError(t, store.responses.Delete(ctx, "vendora-static-v2", http.MethodGet, "/products"))

	got, err := store.Match(ctx, "vendora-static-v2", http.MethodGet, "/products")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Body)

	// A purge flushes the hot layer, exposing the miss.
	_, err = store.PurgePartition(ctx, "vendora-static-v2")
	require.NoError(t, err)
	_, err = store.Match(ctx, "vendora-static-v2", http.MethodGet, "/products")
	assert.True(t, errors.Is(err, repository.ErrResponseNotFound))
}

func TestStore_OfflineDataRoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := t.Context()

	type draft struct {
		Items []string `json:"items"`
		Total int      `json:"total"`
	}
	in := draft{Items: []string{"sku-1", "sku-2"}, Total: 2}
	require.NoError(t, store.WriteOfflineData(ctx, "cart-draft", in))

	var out draft
	require.NoError(t, store.ReadOfflineData(ctx, "cart-draft", &out))
	assert.Equal(t, in, out)

	names, err := store.ListOfflineData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cart-draft"}, names)

	require.NoError(t, store.ClearOfflineData(ctx, "cart-draft"))
	err = store.ReadOfflineData(ctx, "cart-draft", &out)
	assert.True(t, errors.Is(err, repository.ErrSlotNotFound))
}

func TestStore_ReadOfflineDataMissingSlot(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	var out map[string]any
	err := store.ReadOfflineData(t.Context(), "never-written", &out)
	assert.True(t, errors.Is(err, repository.ErrSlotNotFound))
}

func TestPartitions(t *testing.T) {
	t.Parallel()

	p := Partitions("v3")
	assert.Equal(t, "v3", p.Tag)
	assert.Equal(t, "vendora-v3", p.Legacy)
	assert.Equal(t, "vendora-static-v3", p.Static)
	assert.Equal(t, "vendora-dynamic-v3", p.Dynamic)
	assert.Equal(t, []string{"vendora-v3", "vendora-static-v3", "vendora-dynamic-v3"}, p.Names())
}

func TestSlotNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/offline-data/cart", SlotName("cart"))
	assert.Equal(t, "cart", SlotLogicalName("/offline-data/cart"))
	assert.Empty(t, SlotLogicalName("unrelated-key"))
}
