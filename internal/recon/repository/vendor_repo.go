package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/harborline/merchops/internal/recon/entity"
	"gorm.io/gorm"
)

// VendorRepository stores canonical vendors and their import-name aliases.
type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// FindAll lists vendors with their aliases.
func (r *VendorRepository) FindAll(ctx context.Context, page, pageSize int, search string) ([]entity.Vendor, int64, error) {
	var items []entity.Vendor
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Vendor{})
	if search != "" {
		query = query.Where("canonical_name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Aliases").
		Order("canonical_name ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID loads a vendor with its aliases.
func (r *VendorRepository) FindByID(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByCanonicalName does a case-insensitive, whitespace-trimmed exact match
// against canonical vendor names.
func (r *VendorRepository) FindByCanonicalName(ctx context.Context, name string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(canonical_name)) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindByAlias does a case-insensitive exact match against the alias table.
func (r *VendorRepository) FindByAlias(ctx context.Context, raw string) (*entity.Vendor, error) {
	var alias entity.VendorAlias
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(alias_text)) = ?", strings.ToLower(strings.TrimSpace(raw))).
		First(&alias).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.findByIDBare(ctx, alias.VendorID)
}

func (r *VendorRepository) findByIDBare(ctx context.Context, id string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create inserts a vendor.
func (r *VendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// Update saves a vendor.
func (r *VendorRepository) Update(ctx context.Context, v *entity.Vendor) error {
	return r.db.WithContext(ctx).Save(v).Error
}

// AddAlias inserts an alias row for a vendor.
func (r *VendorRepository) AddAlias(ctx context.Context, alias *entity.VendorAlias) error {
	return r.db.WithContext(ctx).Create(alias).Error
}

// RemoveAlias deletes an alias row.
func (r *VendorRepository) RemoveAlias(ctx context.Context, aliasID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", aliasID).Delete(&entity.VendorAlias{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
