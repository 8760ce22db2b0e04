package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/harborline/merchops/internal/recon/entity"
	"go.uber.org/zap"
)

// ProjectionRepository is the keyed projection store the engine mutates.
// Matching, lifecycle and archival all go through it; there is no ambient
// database handle.
type ProjectionRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Projection, error)
	FindOpenByVendor(ctx context.Context, vendorID string) ([]entity.Projection, error)
	Update(ctx context.Context, p *entity.Projection) error
	ReplaceForVendor(ctx context.Context, rows []entity.Projection) error
	ArchiveForVendor(ctx context.Context, vendorID string, archivedAt time.Time) (int64, error)
	ExpireSweep(ctx context.Context, asOf time.Time, regularDays, mtoDays int, regularComment, mtoComment string) (int64, error)
	ExpireWithSnapshot(ctx context.Context, p *entity.Projection, snapshot *entity.ExpiredProjection) error
	RestoreFromSnapshot(ctx context.Context, p *entity.Projection, ledger *entity.ExpiredProjection) error
}

// POSource reads the incoming-PO staging rows produced by the upstream
// import pipeline.
type POSource interface {
	FindUnprocessed(ctx context.Context, limit int) ([]entity.IncomingPO, error)
	FindByPONumber(ctx context.Context, poNumber string) (*entity.IncomingPO, error)
	MarkProcessed(ctx context.Context, ids []string, at time.Time) error
}

const (
	matchLockPrefix = "recon:match:"
	matchLockTTL    = 2 * time.Minute

	// varianceFlagPct is the default |variancePct| above which a match counts
	// as variance-flagged in the batch result.
	varianceFlagPct = 10
)

// BatchResult aggregates one matching run. Per-PO failures land in Errors;
// they never abort the batch.
type BatchResult struct {
	MatchedCount  int      `json:"matched_count"`
	VarianceCount int      `json:"variance_count"`
	SkippedCount  int      `json:"skipped_count"`
	Errors        []string `json:"errors"`
}

// MatchingService resolves incoming POs against open projections.
type MatchingService struct {
	projections ProjectionRepository
	pos         POSource
	resolver    *VendorResolver
	extractor   *CollectionExtractor
	locker      Locker
	logger      *zap.Logger
	batchSize   int
	variancePct int
	now         func() time.Time
}

func NewMatchingService(
	projections ProjectionRepository,
	pos POSource,
	resolver *VendorResolver,
	extractor *CollectionExtractor,
	locker Locker,
	logger *zap.Logger,
	batchSize, variancePct int,
) *MatchingService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if variancePct <= 0 {
		variancePct = varianceFlagPct
	}
	return &MatchingService{
		projections: projections,
		pos:         pos,
		resolver:    resolver,
		extractor:   extractor,
		locker:      locker,
		logger:      logger,
		batchSize:   batchSize,
		variancePct: variancePct,
		now:         time.Now,
	}
}

type matchKey struct {
	term  string // lower(sku) or lower(collection)
	year  int
	month int
}

// RunPending pulls one bounded batch of unprocessed staging rows, matches
// them, and stamps them processed.
func (s *MatchingService) RunPending(ctx context.Context) (*BatchResult, error) {
	pos, err := s.pos.FindUnprocessed(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("load unprocessed POs: %w", err)
	}
	result, err := s.MatchBatch(ctx, pos)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(pos))
	for _, po := range pos {
		ids = append(ids, po.ID)
	}
	if err := s.pos.MarkProcessed(ctx, ids, s.now()); err != nil {
		return nil, fmt.Errorf("mark POs processed: %w", err)
	}
	return result, nil
}

// MatchBatch matches each incoming PO against at most one open projection.
// POs are grouped by resolved vendor; each group runs under the vendor's
// exclusive lock with its own freshly built index.
func (s *MatchingService) MatchBatch(ctx context.Context, pos []entity.IncomingPO) (*BatchResult, error) {
	result := &BatchResult{}

	byVendor := make(map[string][]entity.IncomingPO)
	var vendorOrder []string
	for _, po := range pos {
		vendor, err := s.resolver.Resolve(ctx, po.VendorNameRaw)
		if err != nil {
			return nil, fmt.Errorf("resolve vendor %q: %w", po.VendorNameRaw, err)
		}
		if vendor == nil || po.ShipDate == nil {
			result.SkippedCount++
			continue
		}
		if _, seen := byVendor[vendor.ID]; !seen {
			vendorOrder = append(vendorOrder, vendor.ID)
		}
		byVendor[vendor.ID] = append(byVendor[vendor.ID], po)
	}

	for _, vendorID := range vendorOrder {
		if err := s.matchVendorGroup(ctx, vendorID, byVendor[vendorID], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *MatchingService) matchVendorGroup(ctx context.Context, vendorID string, pos []entity.IncomingPO, result *BatchResult) error {
	lock, err := s.locker.Obtain(ctx, matchLockPrefix+vendorID, matchLockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(200 * time.Millisecond),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			result.Errors = append(result.Errors, fmt.Sprintf("vendor %s: matching lock not obtained", vendorID))
			return nil
		}
		return fmt.Errorf("obtain match lock for vendor %s: %w", vendorID, err)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	open, err := s.projections.FindOpenByVendor(ctx, vendorID)
	if err != nil {
		return fmt.Errorf("load open projections for vendor %s: %w", vendorID, err)
	}

	regularIndex := make(map[matchKey]*entity.Projection)
	mtoIndex := make(map[matchKey]*entity.Projection)
	for i := range open {
		p := &open[i]
		switch p.OrderType {
		case entity.OrderTypeMTO:
			if p.Collection != "" {
				mtoIndex[matchKey{strings.ToLower(p.Collection), p.Year, p.Month}] = p
			}
		default:
			if p.SKU != "" {
				regularIndex[matchKey{strings.ToLower(p.SKU), p.Year, p.Month}] = p
			}
		}
	}

	for i := range pos {
		po := &pos[i]
		year, month := po.ShipDate.Year(), int(po.ShipDate.Month())

		// An extracted MTO collection wins exclusively: on an index hit this
		// PO never also attempts a regular match.
		if collection, ok := s.extractor.Extract(po.ProgramDescription); ok {
			key := matchKey{collection, year, month}
			if p, hit := mtoIndex[key]; hit {
				if s.persistMatch(ctx, p, po, result) {
					delete(mtoIndex, key)
				}
				continue
			}
		}

		if po.SKU != "" {
			key := matchKey{strings.ToLower(po.SKU), year, month}
			if p, hit := regularIndex[key]; hit {
				if s.persistMatch(ctx, p, po, result) {
					delete(regularIndex, key)
				}
			}
		}
	}
	return nil
}

// persistMatch applies the match fields and writes the projection in a single
// update. Returns false when persistence failed; the failure is recorded and
// the batch moves on.
func (s *MatchingService) persistMatch(ctx context.Context, p *entity.Projection, po *entity.IncomingPO, result *BatchResult) bool {
	ApplyMatch(p, po, s.now())
	if err := s.projections.Update(ctx, p); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("po %s: persist match: %v", po.PONumber, err))
		s.logger.Warn("match persistence failed",
			zap.String("po_number", po.PONumber),
			zap.String("projection_id", p.ID),
			zap.Error(err),
		)
		return false
	}

	result.MatchedCount++
	if p.VariancePct != nil && abs(*p.VariancePct) > s.variancePct {
		result.VarianceCount++
	}
	return true
}

// ApplyMatch binds a PO to a projection and computes variances. Manual match
// uses the identical computation.
func ApplyMatch(p *entity.Projection, po *entity.IncomingPO, now time.Time) {
	qty := po.Quantity
	value := po.Value
	qtyVariance := qty - p.ProjectedQty
	valueVariance := value - p.ProjectedValue

	pct := 0
	if p.ProjectedQty > 0 {
		pct = int(math.Round(float64(qtyVariance) / float64(p.ProjectedQty) * 100))
	}

	poNumber := po.PONumber
	matchedAt := now

	p.MatchStatus = entity.MatchStatusMatched
	p.MatchedPONumber = &poNumber
	p.MatchedAt = &matchedAt
	p.ActualQty = &qty
	p.ActualValue = &value
	p.QuantityVariance = &qtyVariance
	p.ValueVariance = &valueVariance
	p.VariancePct = &pct
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
