// Package repository defines data-access interfaces for the cache store.
package repository

import (
	"context"
	"errors"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
)

// ErrResponseNotFound is returned when no cached response matches a
// request identity.
var ErrResponseNotFound = errors.New("cached response not found")

// ErrSlotNotFound is returned when an offline-data slot does not exist.
var ErrSlotNotFound = errors.New("offline-data slot not found")

// ResponseRepository manages captured responses across named partitions.
type ResponseRepository interface {
	// Match returns the stored response for (partition, method, url).
	// Returns ErrResponseNotFound on a miss.
	Match(ctx context.Context, partition, method, url string) (*entities.CachedResponse, error)
	// Put upserts a captured response on its request identity.
	Put(ctx context.Context, resp *entities.CachedResponse) error
	// Delete removes a single entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, partition, method, url string) error
	// PurgePartition removes every entry in a partition.
	PurgePartition(ctx context.Context, partition string) (int64, error)
	// ListPartitions returns the distinct partition names currently stored.
	ListPartitions(ctx context.Context) ([]string, error)
	// DeletePartitionsExcept removes all entries whose partition is not in
	// keep, returning the number of rows deleted.
	DeletePartitionsExcept(ctx context.Context, keep []string) (int64, error)
	// CountPartition returns the number of entries in a partition.
	CountPartition(ctx context.Context, partition string) (int64, error)
}

// OfflineDataRepository manages offline-data slots.
type OfflineDataRepository interface {
	// ReadSlot returns the JSON payload for slot, or ErrSlotNotFound.
	ReadSlot(ctx context.Context, slot string) (string, error)
	// WriteSlot upserts the JSON payload for slot.
	WriteSlot(ctx context.Context, slot, payload string) error
	// ClearSlot deletes a slot. Clearing a missing slot is not an error.
	ClearSlot(ctx context.Context, slot string) error
	// ListSlots returns all slot names, ordered by name.
	ListSlots(ctx context.Context) ([]string, error)
}
