package repository

import (
	"context"
	"errors"
	"time"

	"github.com/harborline/merchops/internal/recon/entity"
	"gorm.io/gorm"
)

// ProjectionRepository stores the live projection row set.
type ProjectionRepository struct {
	db *gorm.DB
}

func NewProjectionRepository(db *gorm.DB) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

func applyProjectionFilter(query *gorm.DB, f ProjectionFilter) *gorm.DB {
	if f.VendorID != nil {
		query = query.Where("vendor_id = ?", *f.VendorID)
	}
	if f.Brand != nil {
		query = query.Where("brand = ?", *f.Brand)
	}
	if f.Year != nil {
		query = query.Where("year = ?", *f.Year)
	}
	if f.Month != nil {
		query = query.Where("month = ?", *f.Month)
	}
	if f.MatchStatus != nil {
		query = query.Where("match_status = ?", *f.MatchStatus)
	}
	if f.OrderType != nil {
		query = query.Where("order_type = ?", *f.OrderType)
	}
	return query
}

// FindAll lists projections by typed filter.
func (r *ProjectionRepository) FindAll(ctx context.Context, f ProjectionFilter, page, pageSize int) ([]entity.Projection, int64, error) {
	var items []entity.Projection
	var total int64

	query := applyProjectionFilter(r.db.WithContext(ctx).Model(&entity.Projection{}), f)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("year ASC, month ASC, vendor_id ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID loads one projection.
func (r *ProjectionRepository) FindByID(ctx context.Context, id string) (*entity.Projection, error) {
	var p entity.Projection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindOpenByVendor loads every unmatched or partial projection for a vendor.
// The matching engine builds its in-memory indices from this set.
func (r *ProjectionRepository) FindOpenByVendor(ctx context.Context, vendorID string) ([]entity.Projection, error) {
	var items []entity.Projection
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Where("match_status IN ?", []string{entity.MatchStatusUnmatched, entity.MatchStatusPartial}).
		Find(&items).Error
	return items, err
}

// Update saves a projection row.
func (r *ProjectionRepository) Update(ctx context.Context, p *entity.Projection) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ReplaceForVendor bulk-inserts a vendor's fresh projection rows. The caller
// archives the previous set first; this only writes the new one.
func (r *ProjectionRepository) ReplaceForVendor(ctx context.Context, rows []entity.Projection) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

// ExpireWithSnapshot writes an operator-expired projection and its review
// ledger row in one transaction. Either both land or neither does; a
// projection must never sit expired without a ledger row to restore it from.
func (r *ProjectionRepository) ExpireWithSnapshot(ctx context.Context, p *entity.Projection, snapshot *entity.ExpiredProjection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return tx.Create(snapshot).Error
	})
}

// RestoreFromSnapshot writes a restored projection and its closed ledger row
// in one transaction.
func (r *ProjectionRepository) RestoreFromSnapshot(ctx context.Context, p *entity.Projection, ledger *entity.ExpiredProjection) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		return tx.Save(ledger).Error
	})
}

// ArchiveForVendor copies every live projection row for the vendor into
// projection_history, then deletes the live rows. Single transaction, set
// based, so a re-import can never silently destroy match history.
func (r *ProjectionRepository) ArchiveForVendor(ctx context.Context, vendorID string, archivedAt time.Time) (int64, error) {
	var archived int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			INSERT INTO recon_projection_history
				(id, projection_id, vendor_id, brand, sku, collection, order_type,
				 year, month, projected_qty, projected_value,
				 match_status, matched_po_number, matched_at,
				 actual_qty, actual_value, quantity_variance, value_variance, variance_pct,
				 comment, archived_at)
			SELECT
				replace(gen_random_uuid()::text, '-', ''), id, vendor_id, brand, sku, collection, order_type,
				year, month, projected_qty, projected_value,
				match_status, matched_po_number, matched_at,
				actual_qty, actual_value, quantity_variance, value_variance, variance_pct,
				comment, ?
			FROM recon_projections
			WHERE vendor_id = ?
		`, archivedAt, vendorID)
		if res.Error != nil {
			return res.Error
		}
		archived = res.RowsAffected

		return tx.Where("vendor_id = ?", vendorID).Delete(&entity.Projection{}).Error
	})
	return archived, err
}

// ExpireSweep expires every open projection whose due window is closer than
// its order type's lead window, snapshotting each into the expired ledger.
// Two set-based statements in one transaction; re-running is a no-op because
// expired rows are no longer eligible.
func (r *ProjectionRepository) ExpireSweep(ctx context.Context, asOf time.Time, regularDays, mtoDays int, regularComment, mtoComment string) (int64, error) {
	const eligible = `
		match_status IN ('unmatched', 'partial')
		AND (make_date(year, month, 1) + INTERVAL '1 month' - INTERVAL '1 day')
			< ?::date + (CASE WHEN order_type = 'mto' THEN ? ELSE ? END) * INTERVAL '1 day'`

	var expired int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			INSERT INTO recon_expired_projections
				(id, projection_id, vendor_id, brand, sku, collection, order_type,
				 year, month, projected_qty, projected_value,
				 expired_at, expired_reason, expired_by,
				 verification_status, created_at, updated_at)
			SELECT
				replace(gen_random_uuid()::text, '-', ''), id, vendor_id, brand, sku, collection, order_type,
				year, month, projected_qty, projected_value,
				?, CASE WHEN order_type = 'mto' THEN ?::text ELSE ?::text END, '',
				'pending', ?, ?
			FROM recon_projections
			WHERE `+eligible,
			asOf, mtoComment, regularComment, asOf, asOf,
			asOf, mtoDays, regularDays)
		if res.Error != nil {
			return res.Error
		}

		res = tx.Exec(`
			UPDATE recon_projections
			SET match_status = 'expired',
				comment = CASE WHEN order_type = 'mto' THEN ?::text ELSE ?::text END,
				updated_at = ?
			WHERE `+eligible,
			mtoComment, regularComment, asOf,
			asOf, mtoDays, regularDays)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected
		return nil
	})
	return expired, err
}
