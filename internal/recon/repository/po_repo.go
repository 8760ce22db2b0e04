package repository

import (
	"context"
	"errors"
	"time"

	"github.com/harborline/merchops/internal/recon/entity"
	"gorm.io/gorm"
)

// IncomingPORepository reads the PO staging table written by the upstream
// import pipeline.
type IncomingPORepository struct {
	db *gorm.DB
}

func NewIncomingPORepository(db *gorm.DB) *IncomingPORepository {
	return &IncomingPORepository{db: db}
}

// FindUnprocessed returns the oldest unprocessed staging rows, bounded.
func (r *IncomingPORepository) FindUnprocessed(ctx context.Context, limit int) ([]entity.IncomingPO, error) {
	var items []entity.IncomingPO
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// FindByPONumber returns the most recent staging row for a PO number.
func (r *IncomingPORepository) FindByPONumber(ctx context.Context, poNumber string) (*entity.IncomingPO, error) {
	var po entity.IncomingPO
	err := r.db.WithContext(ctx).
		Where("po_number = ?", poNumber).
		Order("created_at DESC").
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// MarkProcessed stamps a batch of staging rows in one statement.
func (r *IncomingPORepository) MarkProcessed(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entity.IncomingPO{}).
		Where("id IN ?", ids).
		Update("processed_at", at).Error
}
