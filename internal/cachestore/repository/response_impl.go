package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendora/vendora-edge/internal/cachestore/entities"
	"github.com/vendora/vendora-edge/internal/errors"
)

// responseRepository implements ResponseRepository over gorm.
type responseRepository struct {
	db *gorm.DB
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Match(ctx context.Context, partition, method, url string) (*entities.CachedResponse, error) {
	var resp entities.CachedResponse
	err := r.db.WithContext(ctx).
		Where("partition = ? AND method = ? AND url = ?", partition, method, url).
		First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to match cached response for %s %s: %w", method, url, err)
	}
	return &resp, nil
}

func (r *responseRepository) Put(ctx context.Context, resp *entities.CachedResponse) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "partition"}, {Name: "method"}, {Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "headers", "body", "recorded_at",
		}),
	}).Create(resp).Error
	if err != nil {
		return fmt.Errorf("failed to store cached response for %s %s: %w", resp.Method, resp.URL, err)
	}
	return nil
}

func (r *responseRepository) Delete(ctx context.Context, partition, method, url string) error {
	err := r.db.WithContext(ctx).
		Where("partition = ? AND method = ? AND url = ?", partition, method, url).
		Delete(&entities.CachedResponse{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cached response for %s %s: %w", method, url, err)
	}
	return nil
}

func (r *responseRepository) PurgePartition(ctx context.Context, partition string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("partition = ?", partition).
		Delete(&entities.CachedResponse{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge partition %q: %w", partition, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *responseRepository) ListPartitions(ctx context.Context) ([]string, error) {
	var partitions []string
	err := r.db.WithContext(ctx).
		Model(&entities.CachedResponse{}).
		Distinct("partition").
		Order("partition ASC").
		Pluck("partition", &partitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	return partitions, nil
}

func (r *responseRepository) DeletePartitionsExcept(ctx context.Context, keep []string) (int64, error) {
	query := r.db.WithContext(ctx)
	if len(keep) > 0 {
		query = query.Where("partition NOT IN ?", keep)
	} else {
		query = query.Where("1 = 1")
	}
	result := query.Delete(&entities.CachedResponse{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete superseded partitions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *responseRepository) CountPartition(ctx context.Context, partition string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.CachedResponse{}).
		Where("partition = ?", partition).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count partition %q: %w", partition, err)
	}
	return count, nil
}
