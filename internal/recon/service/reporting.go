package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/repository"
	"gorm.io/gorm"
)

// dueWindowEndExpr computes the last calendar day of a projection's target
// month in SQL. Keep in sync with entity.Projection.DueWindowEnd.
const dueWindowEndExpr = "(make_date(year, month, 1) + INTERVAL '1 month' - INTERVAL '1 day')"

// ReportingService is the read-only consumer of reconciled projection state.
// It never mutates anything.
type ReportingService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReportingService(db *gorm.DB) *ReportingService {
	return &ReportingService{db: db, now: time.Now}
}

// OverdueProjection is an unmatched regular projection near or past its due
// window. DaysOverdue is negative while the window is still ahead.
type OverdueProjection struct {
	entity.Projection
	DaysOverdue int `json:"days_overdue"`
}

// OverdueRegular lists open regular projections whose due window ends within
// the given number of days, or has already passed.
func (s *ReportingService) OverdueRegular(ctx context.Context, withinDays int, f repository.ProjectionFilter) ([]OverdueProjection, error) {
	var rows []entity.Projection
	today := s.now()

	query := s.applyFilter(s.db.WithContext(ctx).Model(&entity.Projection{}), f).
		Where("order_type = ?", entity.OrderTypeRegular).
		Where("match_status IN ?", []string{entity.MatchStatusUnmatched, entity.MatchStatusPartial}).
		Where(dueWindowEndExpr+" < ?::date + ? * INTERVAL '1 day'", today, withinDays).
		Order("year ASC, month ASC")

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]OverdueProjection, 0, len(rows))
	for _, p := range rows {
		out = append(out, OverdueProjection{
			Projection:  p,
			DaysOverdue: daysBetween(p.DueWindowEnd(), today),
		})
	}
	return out, nil
}

// HighVariance lists matched projections whose |variancePct| meets the
// threshold.
func (s *ReportingService) HighVariance(ctx context.Context, thresholdPct int, f repository.ProjectionFilter) ([]entity.Projection, error) {
	var rows []entity.Projection
	err := s.applyFilter(s.db.WithContext(ctx).Model(&entity.Projection{}), f).
		Where("match_status = ?", entity.MatchStatusMatched).
		Where("ABS(variance_pct) >= ?", thresholdPct).
		Order("ABS(variance_pct) DESC").
		Find(&rows).Error
	return rows, err
}

// MTOProjection annotates an MTO/SPO projection with days until its due
// window closes; nil once the projection is no longer open.
type MTOProjection struct {
	entity.Projection
	DaysUntilDue *int `json:"days_until_due"`
}

// MTOOutlook lists every MTO projection in scope.
func (s *ReportingService) MTOOutlook(ctx context.Context, f repository.ProjectionFilter) ([]MTOProjection, error) {
	var rows []entity.Projection
	err := s.applyFilter(s.db.WithContext(ctx).Model(&entity.Projection{}), f).
		Where("order_type = ?", entity.OrderTypeMTO).
		Order("year ASC, month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	today := s.now()
	out := make([]MTOProjection, 0, len(rows))
	for _, p := range rows {
		mp := MTOProjection{Projection: p}
		if p.MatchStatus == entity.MatchStatusUnmatched || p.MatchStatus == entity.MatchStatusPartial {
			days := daysBetween(today, p.DueWindowEnd())
			mp.DaysUntilDue = &days
		}
		out = append(out, mp)
	}
	return out, nil
}

// StatusSummaryRow holds per vendor/brand/period counts across every match
// status.
type StatusSummaryRow struct {
	VendorID  string `json:"vendor_id"`
	Brand     string `json:"brand"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Total     int    `json:"total"`
	Unmatched int    `json:"unmatched"`
	Partial   int    `json:"partial"`
	Matched   int    `json:"matched"`
	Expired   int    `json:"expired"`
}

// StatusSummary aggregates projection counts by vendor, brand and period.
func (s *ReportingService) StatusSummary(ctx context.Context, f repository.ProjectionFilter) ([]StatusSummaryRow, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if f.VendorID != nil {
		conditions = append(conditions, "vendor_id = ?")
		args = append(args, *f.VendorID)
	}
	if f.Brand != nil {
		conditions = append(conditions, "brand = ?")
		args = append(args, *f.Brand)
	}
	if f.Year != nil {
		conditions = append(conditions, "year = ?")
		args = append(args, *f.Year)
	}
	if f.Month != nil {
		conditions = append(conditions, "month = ?")
		args = append(args, *f.Month)
	}

	var rows []StatusSummaryRow
	err := s.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT
			vendor_id, brand, year, month,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE match_status = 'unmatched') AS unmatched,
			COUNT(*) FILTER (WHERE match_status = 'partial')   AS partial,
			COUNT(*) FILTER (WHERE match_status = 'matched')   AS matched,
			COUNT(*) FILTER (WHERE match_status = 'expired')   AS expired
		FROM recon_projections
		WHERE %s
		GROUP BY vendor_id, brand, year, month
		ORDER BY vendor_id, brand, year, month
	`, strings.Join(conditions, " AND ")), args...).Scan(&rows).Error
	return rows, err
}

func (s *ReportingService) applyFilter(query *gorm.DB, f repository.ProjectionFilter) *gorm.DB {
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
	return query
}

func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
