package repository

import (
	"context"
	"errors"

	"github.com/harborline/merchops/internal/recon/entity"
	"gorm.io/gorm"
)

// ExpiredRepository stores the expired-projection review ledger.
type ExpiredRepository struct {
	db *gorm.DB
}

func NewExpiredRepository(db *gorm.DB) *ExpiredRepository {
	return &ExpiredRepository{db: db}
}

// FindAll lists ledger rows, optionally narrowed by vendor and verification
// status.
func (r *ExpiredRepository) FindAll(ctx context.Context, vendorID, verificationStatus string, page, pageSize int) ([]entity.ExpiredProjection, int64, error) {
	var items []entity.ExpiredProjection
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ExpiredProjection{})
	if vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if verificationStatus != "" {
		query = query.Where("verification_status = ?", verificationStatus)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("expired_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID loads one ledger row.
func (r *ExpiredRepository) FindByID(ctx context.Context, id string) (*entity.ExpiredProjection, error) {
	var e entity.ExpiredProjection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Update saves a ledger row. Rows are created by ProjectionRepository, either
// set-based in the sweep or transactionally with the projection write.
func (r *ExpiredRepository) Update(ctx context.Context, e *entity.ExpiredProjection) error {
	return r.db.WithContext(ctx).Save(e).Error
}
