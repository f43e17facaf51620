// Package entities defines the persisted cache-store models.
package entities

import (
	"encoding/json"
	"net/http"
	"time"
)

// CachedResponse is a captured HTTP response stored in a named partition,
// keyed by request identity (method + URL). Headers are stored as a JSON
// document so the row survives schema-free header sets.
type CachedResponse struct {
	ID        uint   `gorm:"primarykey"`
	Partition string `gorm:"uniqueIndex:idx_partition_request;size:128"`
	Method    string `gorm:"uniqueIndex:idx_partition_request;size:16"`
	URL       string `gorm:"uniqueIndex:idx_partition_request;size:2048"`

	Status     int
	Headers    string `gorm:"type:text"`
	Body       []byte `gorm:"type:blob"`
	RecordedAt time.Time
}

// SetHeaders serializes an http.Header into the Headers column.
func (r *CachedResponse) SetHeaders(h http.Header) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	r.Headers = string(data)
	return nil
}

// DecodeHeaders deserializes the Headers column. An empty column yields an
// empty header set rather than an error.
func (r *CachedResponse) DecodeHeaders() (http.Header, error) {
	if r.Headers == "" {
		return http.Header{}, nil
	}
	var h http.Header
	if err := json.Unmarshal([]byte(r.Headers), &h); err != nil {
		return nil, err
	}
	return h, nil
}

// OfflineRecord is an offline-data slot: a durable JSON document keyed by
// a logical slot name. This is the pending-write queue's backing storage
// as well as the controller's typed key/value facade.
type OfflineRecord struct {
	ID        uint   `gorm:"primarykey"`
	Slot      string `gorm:"uniqueIndex;size:256"`
	Payload   string `gorm:"type:text"`
	UpdatedAt time.Time
}
