package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/minio/minio-go/v7"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ObjectStore retains uploaded import workbooks for audit. Satisfied by
// *minio.Client.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ImportService applies a vendor's projection workbook: retain the file,
// archive the vendor's current projection set, replace it with the fresh
// unmatched rows.
type ImportService struct {
	projections ProjectionRepository
	archival    *ArchivalService
	store       ObjectStore
	locker      Locker
	bucket      string
	logger      *zap.Logger
	now         func() time.Time
}

func NewImportService(projections ProjectionRepository, archival *ArchivalService, store ObjectStore, locker Locker, bucket string, logger *zap.Logger) *ImportService {
	return &ImportService{
		projections: projections,
		archival:    archival,
		store:       store,
		locker:      locker,
		bucket:      bucket,
		logger:      logger,
		now:         time.Now,
	}
}

// ImportResult aggregates one workbook import. Row-level problems land in
// RowErrors; valid rows are still applied.
type ImportResult struct {
	VendorID      string   `json:"vendor_id"`
	ObjectKey     string   `json:"object_key"`
	ArchivedCount int64    `json:"archived_count"`
	ImportedCount int      `json:"imported_count"`
	RowErrors     []string `json:"row_errors"`
}

// Workbook columns, after the header row.
const (
	colBrand = iota
	colOrderType
	colSKU
	colCollection
	colYear
	colMonth
	colProjectedQty
	colProjectedValue
)

// ImportWorkbook parses and applies one vendor projection workbook. The
// previous projection set is archived first, so a re-import never destroys
// accrued match history. A workbook with no valid rows changes nothing.
func (s *ImportService) ImportWorkbook(ctx context.Context, vendorID, filename string, data []byte) (*ImportResult, error) {
	result := &ImportResult{VendorID: vendorID}

	key := fmt.Sprintf("imports/%s/%s-%s", vendorID, s.now().Format("20060102T150405"), filename)
	if _, err := s.store.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}); err != nil {
		return nil, fmt.Errorf("retain import workbook: %w", err)
	}
	result.ObjectKey = key

	rows, rowErrors, err := s.parseWorkbook(vendorID, data)
	if err != nil {
		return nil, err
	}
	result.RowErrors = rowErrors

	if len(rows) == 0 {
		return result, nil
	}

	// Same per-vendor lock the matching engine holds, so an import can never
	// interleave its archive/replace with a concurrent matching run.
	lock, err := s.locker.Obtain(ctx, matchLockPrefix+vendorID, matchLockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(200 * time.Millisecond),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("vendor %s: import lock not obtained, a matching run may be active", vendorID)
		}
		return nil, fmt.Errorf("obtain import lock for vendor %s: %w", vendorID, err)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	archived, err := s.archival.Archive(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	result.ArchivedCount = archived

	if err := s.projections.ReplaceForVendor(ctx, rows); err != nil {
		return nil, fmt.Errorf("apply projection import for vendor %s: %w", vendorID, err)
	}
	result.ImportedCount = len(rows)

	s.logger.Info("projection import applied",
		zap.String("vendor_id", vendorID),
		zap.Int("imported", result.ImportedCount),
		zap.Int64("archived", archived),
		zap.Int("row_errors", len(rowErrors)),
	)
	return result, nil
}

func (s *ImportService) parseWorkbook(vendorID string, data []byte) ([]entity.Projection, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	now := s.now()
	var rows []entity.Projection
	var rowErrors []string
	for i, cells := range raw {
		if i == 0 { // header
			continue
		}
		p, err := parseProjectionRow(vendorID, cells, now)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		rows = append(rows, *p)
	}
	return rows, rowErrors, nil
}

func parseProjectionRow(vendorID string, cells []string, now time.Time) (*entity.Projection, error) {
	cell := func(idx int) string {
		if idx < len(cells) {
			return strings.TrimSpace(cells[idx])
		}
		return ""
	}

	orderType := strings.ToLower(cell(colOrderType))
	switch orderType {
	case "", "regular":
		orderType = entity.OrderTypeRegular
	case "mto", "spo":
		orderType = entity.OrderTypeMTO
	default:
		return nil, fmt.Errorf("unknown order type %q", cell(colOrderType))
	}

	sku := cell(colSKU)
	collection := cell(colCollection)
	if orderType == entity.OrderTypeRegular && sku == "" {
		return nil, fmt.Errorf("regular projection requires a SKU")
	}
	if orderType == entity.OrderTypeMTO && collection == "" {
		return nil, fmt.Errorf("MTO projection requires a collection")
	}

	year, err := strconv.Atoi(cell(colYear))
	if err != nil || year < 2000 || year > 2100 {
		return nil, fmt.Errorf("bad year %q", cell(colYear))
	}
	month, err := strconv.Atoi(cell(colMonth))
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("bad month %q", cell(colMonth))
	}

	qty, err := strconv.ParseInt(strings.ReplaceAll(cell(colProjectedQty), ",", ""), 10, 64)
	if err != nil || qty < 0 {
		return nil, fmt.Errorf("bad projected quantity %q", cell(colProjectedQty))
	}

	value, err := parseMinorUnits(cell(colProjectedValue))
	if err != nil {
		return nil, fmt.Errorf("bad projected value %q: %v", cell(colProjectedValue), err)
	}

	return &entity.Projection{
		ID:             uuid.New().String()[:32],
		VendorID:       vendorID,
		Brand:          cell(colBrand),
		SKU:            sku,
		Collection:     collection,
		OrderType:      orderType,
		Year:           year,
		Month:          month,
		ProjectedQty:   qty,
		ProjectedValue: value,
		MatchStatus:    entity.MatchStatusUnmatched,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// parseMinorUnits converts a money cell ("58,000.00") to minor units without
// float rounding.
func parseMinorUnits(cell string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(cell, ",", ""))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount")
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
