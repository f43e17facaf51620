package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/errors"
)

// offlineDataRepository implements OfflineDataRepository over gorm.
type offlineDataRepository struct {
	db *gorm.DB
}

// NewOfflineDataRepository creates a new OfflineDataRepository.
func NewOfflineDataRepository(db *gorm.DB) OfflineDataRepository {
	return &offlineDataRepository{db: db}
}

func (r *offlineDataRepository) ReadSlot(ctx context.Context, slot string) (string, error) {
	var record entities.OfflineRecord
	err := r.db.WithContext(ctx).Where("slot = ?", slot).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSlotNotFound
		}
		return "", fmt.Errorf("failed to read offline-data slot %q: %w", slot, err)
	}
	return record.Payload, nil
}

func (r *offlineDataRepository) WriteSlot(ctx context.Context, slot, payload string) error {
	record := entities.OfflineRecord{
		Slot:      slot,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to write offline-data slot %q: %w", slot, err)
	}
	return nil
}

func (r *offlineDataRepository) ClearSlot(ctx context.Context, slot string) error {
	err := r.db.WithContext(ctx).Where("slot = ?", slot).Delete(&entities.OfflineRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear offline-data slot %q: %w", slot, err)
	}
	return nil
}

func (r *offlineDataRepository) ListSlots(ctx context.Context) ([]string, error) {
	var slots []string
	err := r.db.WithContext(ctx).
		Model(&entities.OfflineRecord{}).
		Order("slot ASC").
		Pluck("slot", &slots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list offline-data slots: %w", err)
	}
	return slots, nil
}
