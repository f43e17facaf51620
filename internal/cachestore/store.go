// Package cachestore provides the persistent partitioned response store
// backing the request-interception worker, plus the offline-data slots
// shared with the foreground controller.
package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/cachestore/repository"
	"github.com/vendora/vendora-edge/internal/errors"
	"github.com/vendora/vendora-edge/internal/logger"
)

// hotCleanupFactor spaces go-cache janitor runs relative to the entry TTL.
const hotCleanupFactor = 2

// Store is the cache-store facade: repositories over sqlite with an
// in-memory read-through layer for hot response lookups.
type Store struct {
	db        *gorm.DB
	responses repository.ResponseRepository
	offline   repository.OfflineDataRepository
	hot       *gocache.Cache
	log       logger.Logger
}

// Open opens (creating if needed) the cache database at path and runs
// migrations. hotTTL bounds staleness of the in-memory layer, which only
// ever shadows rows that exist in sqlite.
func Open(path string, hotTTL time.Duration, log logger.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("cachestore").
			Category(errors.CategoryCache).
			Context("path", path).
			Build()
	}
	if err := db.AutoMigrate(&entities.CachedResponse{}, &entities.OfflineRecord{}); err != nil {
		return nil, errors.New(err).
			Component("cachestore").
			Category(errors.CategoryCache).
			Context("operation", "migrate").
			Build()
	}
	return NewStore(db, hotTTL, log), nil
}

// NewStore wires a Store over an existing gorm handle. Used directly by
// tests running on in-memory sqlite.
func NewStore(db *gorm.DB, hotTTL time.Duration, log logger.Logger) *Store {
	if hotTTL <= 0 {
		hotTTL = time.Minute
	}
	return &Store{
		db:        db,
		responses: repository.NewResponseRepository(db),
		offline:   repository.NewOfflineDataRepository(db),
		hot:       gocache.New(hotTTL, hotCleanupFactor*hotTTL),
		log:       log,
	}
}

func hotKey(partition, method, url string) string {
	return partition + "|" + method + "|" + url
}

// Match returns the captured response for a request identity, consulting
// the hot layer first. Returns repository.ErrResponseNotFound on a miss.
func (s *Store) Match(ctx context.Context, partition, method, url string) (*entities.CachedResponse, error) {
	key := hotKey(partition, method, url)
	if v, ok := s.hot.Get(key); ok {
		if resp, ok := v.(*entities.CachedResponse); ok {
			return resp, nil
		}
	}
	resp, err := s.responses.Match(ctx, partition, method, url)
	if err != nil {
		return nil, err
	}
	s.hot.Set(key, resp, gocache.DefaultExpiration)
	return resp, nil
}

// Put stores a captured response and refreshes the hot layer.
func (s *Store) Put(ctx context.Context, resp *entities.CachedResponse) error {
	if err := s.responses.Put(ctx, resp); err != nil {
		return err
	}
	s.hot.Set(hotKey(resp.Partition, resp.Method, resp.URL), resp, gocache.DefaultExpiration)
	return nil
}

// Delete removes a single entry from persistence and the hot layer.
func (s *Store) Delete(ctx context.Context, partition, method, url string) error {
	if err := s.responses.Delete(ctx, partition, method, url); err != nil {
		return err
	}
	s.hot.Delete(hotKey(partition, method, url))
	return nil
}

// PurgePartition drops every entry in a partition. The hot layer is
// flushed wholesale; keys are not enumerable per partition there.
func (s *Store) PurgePartition(ctx context.Context, partition string) (int64, error) {
	n, err := s.responses.PurgePartition(ctx, partition)
	if err != nil {
		return 0, err
	}
	s.hot.Flush()
	return n, nil
}

// ListPartitions returns the distinct partition names currently stored.
func (s *Store) ListPartitions(ctx context.Context) ([]string, error) {
	return s.responses.ListPartitions(ctx)
}

// CountPartition returns the number of entries in a partition.
func (s *Store) CountPartition(ctx context.Context, partition string) (int64, error) {
	return s.responses.CountPartition(ctx, partition)
}

// DeletePartitionsExcept removes every entry outside the keep set. Called
// during worker activation so no more than the current generation's
// partitions persist.
func (s *Store) DeletePartitionsExcept(ctx context.Context, keep []string) (int64, error) {
	n, err := s.responses.DeletePartitionsExcept(ctx, keep)
	if err != nil {
		return 0, err
	}
	s.hot.Flush()
	return n, nil
}

// WriteOfflineData marshals v into the offline-data slot for name.
func (s *Store) WriteOfflineData(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.New(err).
			Component("cachestore").
			Category(errors.CategoryValidation).
			Context("slot", name).
			Build()
	}
	return s.offline.WriteSlot(ctx, SlotName(name), string(payload))
}

// ReadOfflineData unmarshals the offline-data slot for name into out.
// Returns repository.ErrSlotNotFound when the slot does not exist.
func (s *Store) ReadOfflineData(ctx context.Context, name string, out any) error {
	payload, err := s.offline.ReadSlot(ctx, SlotName(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode offline-data slot %q: %w", name, err)
	}
	return nil
}

// ClearOfflineData deletes the offline-data slot for name.
func (s *Store) ClearOfflineData(ctx context.Context, name string) error {
	return s.offline.ClearSlot(ctx, SlotName(name))
}

// ListOfflineData returns the logical names of all offline-data slots.
func (s *Store) ListOfflineData(ctx context.Context) ([]string, error) {
	slots, err := s.offline.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		if name := SlotLogicalName(slot); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
