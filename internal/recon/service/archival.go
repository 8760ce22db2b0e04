package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ArchivalService snapshots a vendor's full projection set, with whatever
// match and variance data it has accrued, into history before a re-import
// replaces the live rows.
type ArchivalService struct {
	projections ProjectionRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewArchivalService(projections ProjectionRepository, logger *zap.Logger) *ArchivalService {
	return &ArchivalService{
		projections: projections,
		logger:      logger,
		now:         time.Now,
	}
}

// Archive copies every live projection row for the vendor to history and
// deletes the live set. One transaction; a failure aborts the whole archive.
func (s *ArchivalService) Archive(ctx context.Context, vendorID string) (int64, error) {
	archivedAt := s.now()
	archived, err := s.projections.ArchiveForVendor(ctx, vendorID, archivedAt)
	if err != nil {
		return 0, fmt.Errorf("archive projections for vendor %s: %w", vendorID, err)
	}

	s.logger.Info("projections archived",
		zap.String("vendor_id", vendorID),
		zap.Int64("rows", archived),
		zap.Time("archived_at", archivedAt),
	)
	return archived, nil
}
