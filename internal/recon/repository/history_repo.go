package repository

import (
	"context"

	"github.com/harborline/merchops/internal/recon/entity"
	"gorm.io/gorm"
)

// HistoryRepository reads the append-only projection history. Writes happen
// only through ProjectionRepository.ArchiveForVendor.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// FindByVendor lists a vendor's archived projection snapshots, newest archive
// first.
func (r *HistoryRepository) FindByVendor(ctx context.Context, vendorID string, page, pageSize int) ([]entity.ProjectionHistory, int64, error) {
	var items []entity.ProjectionHistory
	var total int64

	query := r.db.WithContext(ctx).
		Model(&entity.ProjectionHistory{}).
		Where("vendor_id = ?", vendorID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("archived_at DESC, year ASC, month ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
