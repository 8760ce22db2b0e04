package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/harborline/merchops/internal/recon/entity"
	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when an operator action does not fit the
// projection's current match status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ExpiredLedger reads and verdicts the expired-projection review ledger.
// Rows are created transactionally alongside the projection write, through
// ProjectionRepository.
type ExpiredLedger interface {
	FindByID(ctx context.Context, id string) (*entity.ExpiredProjection, error)
	Update(ctx context.Context, e *entity.ExpiredProjection) error
}

const (
	sweepLockKey = "recon:sweep"
	sweepLockTTL = 5 * time.Minute
)

// LifecycleService ages projections through their state machine: the
// scheduled expiration sweep plus the manual expire/restore/unmatch/
// manual-match operator actions.
type LifecycleService struct {
	projections ProjectionRepository
	expired     ExpiredLedger
	pos         POSource
	locker      Locker
	logger      *zap.Logger
	regularDays int
	mtoDays     int
	now         func() time.Time
}

func NewLifecycleService(
	projections ProjectionRepository,
	expired ExpiredLedger,
	pos POSource,
	locker Locker,
	logger *zap.Logger,
	regularDays, mtoDays int,
) *LifecycleService {
	if regularDays <= 0 {
		regularDays = 90
	}
	if mtoDays <= 0 {
		mtoDays = 30
	}
	return &LifecycleService{
		projections: projections,
		expired:     expired,
		pos:         pos,
		locker:      locker,
		logger:      logger,
		regularDays: regularDays,
		mtoDays:     mtoDays,
		now:         time.Now,
	}
}

// ExpireEligible reports whether an open projection is inside its order
// type's expiration window as of the given day. The comparison is by calendar
// day, matching the date-cast SQL sweep, and the window closes strictly: a
// due-window end exactly regularDays in the future is still safe at any time
// of that day.
func ExpireEligible(p *entity.Projection, asOf time.Time, regularDays, mtoDays int) bool {
	if p.MatchStatus != entity.MatchStatusUnmatched && p.MatchStatus != entity.MatchStatusPartial {
		return false
	}
	window := regularDays
	if p.OrderType == entity.OrderTypeMTO {
		window = mtoDays
	}
	utc := asOf.UTC()
	day := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return day.After(p.DueWindowEnd().AddDate(0, 0, -window))
}

// ExpireSweep runs the set-based auto-expiration. Idempotent: expired rows
// fall out of the eligible set, so re-running is a no-op. A singleton lock
// keeps overlapping scheduled sweeps from racing.
func (s *LifecycleService) ExpireSweep(ctx context.Context) (int64, error) {
	lock, err := s.locker.Obtain(ctx, sweepLockKey, sweepLockTTL, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Info("expiration sweep already running, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("obtain sweep lock: %w", err)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	asOf := s.now()
	regularComment := fmt.Sprintf("Auto-expired: due window inside %d-day regular order lead time", s.regularDays)
	mtoComment := fmt.Sprintf("Auto-expired: due window inside %d-day MTO lead time", s.mtoDays)

	expired, err := s.projections.ExpireSweep(ctx, asOf, s.regularDays, s.mtoDays, regularComment, mtoComment)
	if err != nil {
		return 0, fmt.Errorf("expiration sweep: %w", err)
	}
	if expired > 0 {
		s.logger.Info("expiration sweep finished", zap.Int64("expired", expired))
	}
	return expired, nil
}

// MarkRemoved forces a projection to expired with an operator-supplied
// reason, regardless of the time window.
func (s *LifecycleService) MarkRemoved(ctx context.Context, projectionID, reason, actor string) error {
	p, err := s.projections.FindByID(ctx, projectionID)
	if err != nil {
		return err
	}
	if p.MatchStatus != entity.MatchStatusUnmatched && p.MatchStatus != entity.MatchStatusPartial {
		return fmt.Errorf("projection %s is %s: %w", p.ID, p.MatchStatus, ErrInvalidTransition)
	}

	now := s.now()
	p.MatchStatus = entity.MatchStatusExpired
	p.Comment = reason
	if err := s.projections.ExpireWithSnapshot(ctx, p, snapshotExpired(p, now, reason, actor)); err != nil {
		return fmt.Errorf("expire projection %s: %w", p.ID, err)
	}
	return nil
}

// Unmatch reverts a matched projection to unmatched, clearing the bound PO
// and all actual/variance fields.
func (s *LifecycleService) Unmatch(ctx context.Context, projectionID string) (*entity.Projection, error) {
	p, err := s.projections.FindByID(ctx, projectionID)
	if err != nil {
		return nil, err
	}
	if p.MatchStatus != entity.MatchStatusMatched {
		return nil, fmt.Errorf("projection %s is %s: %w", p.ID, p.MatchStatus, ErrInvalidTransition)
	}

	p.ClearMatch()
	if err := s.projections.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("unmatch projection %s: %w", p.ID, err)
	}
	return p, nil
}

// ManualMatch binds an operator-chosen PO number to a projection, computing
// variance exactly like the matching engine. Fails fast when either entity is
// missing.
func (s *LifecycleService) ManualMatch(ctx context.Context, projectionID, poNumber string) (*entity.Projection, error) {
	p, err := s.projections.FindByID(ctx, projectionID)
	if err != nil {
		return nil, err
	}
	po, err := s.pos.FindByPONumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	if p.MatchStatus != entity.MatchStatusUnmatched && p.MatchStatus != entity.MatchStatusPartial {
		return nil, fmt.Errorf("projection %s is %s: %w", p.ID, p.MatchStatus, ErrInvalidTransition)
	}

	ApplyMatch(p, po, s.now())
	if err := s.projections.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("manual match projection %s: %w", p.ID, err)
	}
	return p, nil
}

// Restore flips an expired projection back into the unmatched pool and closes
// its ledger row as restored.
func (s *LifecycleService) Restore(ctx context.Context, expiredID, actor string) error {
	e, err := s.expired.FindByID(ctx, expiredID)
	if err != nil {
		return err
	}
	if e.VerificationStatus == entity.VerificationRestored {
		return fmt.Errorf("expired projection %s already restored: %w", e.ID, ErrInvalidTransition)
	}

	p, err := s.projections.FindByID(ctx, e.ProjectionID)
	if err != nil {
		return err
	}
	if p.MatchStatus != entity.MatchStatusExpired {
		return fmt.Errorf("projection %s is %s: %w", p.ID, p.MatchStatus, ErrInvalidTransition)
	}

	p.MatchStatus = entity.MatchStatusUnmatched
	p.Comment = ""
	now := s.now()
	e.RestoredAt = &now
	e.RestoredBy = &actor
	e.VerificationStatus = entity.VerificationRestored
	if err := s.projections.RestoreFromSnapshot(ctx, p, e); err != nil {
		return fmt.Errorf("restore projection %s: %w", p.ID, err)
	}
	return nil
}

// Verify records an operator verdict on a ledger row. The live projection is
// untouched.
func (s *LifecycleService) Verify(ctx context.Context, expiredID, status, notes, actor string) error {
	if status != entity.VerificationVerified && status != entity.VerificationCancelled {
		return fmt.Errorf("verification status %q: %w", status, ErrInvalidTransition)
	}

	e, err := s.expired.FindByID(ctx, expiredID)
	if err != nil {
		return err
	}

	now := s.now()
	e.VerificationStatus = status
	e.VerifiedBy = &actor
	e.VerifiedAt = &now
	e.VerificationNotes = notes
	return s.expired.Update(ctx, e)
}

func snapshotExpired(p *entity.Projection, at time.Time, reason, actor string) *entity.ExpiredProjection {
	return &entity.ExpiredProjection{
		ID:                 uuid.New().String()[:32],
		ProjectionID:       p.ID,
		VendorID:           p.VendorID,
		Brand:              p.Brand,
		SKU:                p.SKU,
		Collection:         p.Collection,
		OrderType:          p.OrderType,
		Year:               p.Year,
		Month:              p.Month,
		ProjectedQty:       p.ProjectedQty,
		ProjectedValue:     p.ProjectedValue,
		ExpiredAt:          at,
		ExpiredReason:      reason,
		ExpiredBy:          actor,
		VerificationStatus: entity.VerificationPending,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
}
