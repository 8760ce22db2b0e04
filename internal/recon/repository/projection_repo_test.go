package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/testutil"
)

func newProjection(vendorID, sku string, year, month int) entity.Projection {
	return entity.Projection{
		ID:           uuid.New().String()[:32],
		VendorID:     vendorID,
		Brand:        "Harborline",
		SKU:          sku,
		OrderType:    entity.OrderTypeRegular,
		Year:         year,
		Month:        month,
		ProjectedQty: 100,
		MatchStatus:  entity.MatchStatusUnmatched,
	}
}

func TestArchiveForVendorSnapshotsAndClears(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProjectionRepository(db)
	history := NewHistoryRepository(db)
	ctx := context.Background()

	matched := newProjection("v1", "SKU-1", 2025, 6)
	poNumber := "PO-77"
	matchedAt := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	actualQty := int64(120)
	matched.MatchStatus = entity.MatchStatusMatched
	matched.MatchedPONumber = &poNumber
	matched.MatchedAt = &matchedAt
	matched.ActualQty = &actualQty

	other := newProjection("v2", "SKU-9", 2025, 6)

	if err := repo.ReplaceForVendor(ctx, []entity.Projection{matched, other}); err != nil {
		t.Fatalf("seed projections: %v", err)
	}

	archivedAt := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	archived, err := repo.ArchiveForVendor(ctx, "v1", archivedAt)
	if err != nil {
		t.Fatalf("ArchiveForVendor: %v", err)
	}
	if archived != 1 {
		t.Fatalf("archived = %d, want 1", archived)
	}

	// v1's live rows are gone, v2's untouched.
	if _, err := repo.FindByID(ctx, matched.ID); err != ErrNotFound {
		t.Errorf("archived projection still live: err = %v", err)
	}
	if _, err := repo.FindByID(ctx, other.ID); err != nil {
		t.Errorf("other vendor's projection disturbed: %v", err)
	}

	snaps, total, err := history.FindByVendor(ctx, "v1", 1, 20)
	if err != nil {
		t.Fatalf("FindByVendor: %v", err)
	}
	if total != 1 || len(snaps) != 1 {
		t.Fatalf("history rows = %d (total %d), want 1", len(snaps), total)
	}
	snap := snaps[0]
	if snap.ProjectionID != matched.ID || snap.SKU != "SKU-1" {
		t.Errorf("snapshot identity: %+v", snap)
	}
	if snap.MatchStatus != entity.MatchStatusMatched ||
		snap.MatchedPONumber == nil || *snap.MatchedPONumber != poNumber ||
		snap.ActualQty == nil || *snap.ActualQty != actualQty {
		t.Errorf("snapshot lost match data: %+v", snap)
	}
}

func TestArchiveThenReimportPreservesHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProjectionRepository(db)
	history := NewHistoryRepository(db)
	ctx := context.Background()

	first := newProjection("v1", "GEN-1", 2025, 6)
	if err := repo.ReplaceForVendor(ctx, []entity.Projection{first}); err != nil {
		t.Fatalf("seed first generation: %v", err)
	}
	if _, err := repo.ArchiveForVendor(ctx, "v1", time.Now().UTC()); err != nil {
		t.Fatalf("first archive: %v", err)
	}

	second := newProjection("v1", "GEN-2", 2025, 9)
	if err := repo.ReplaceForVendor(ctx, []entity.Projection{second}); err != nil {
		t.Fatalf("seed second generation: %v", err)
	}
	if _, err := repo.ArchiveForVendor(ctx, "v1", time.Now().UTC()); err != nil {
		t.Fatalf("second archive: %v", err)
	}

	_, total, err := history.FindByVendor(ctx, "v1", 1, 20)
	if err != nil {
		t.Fatalf("FindByVendor: %v", err)
	}
	if total != 2 {
		t.Errorf("history total = %d, want both generations", total)
	}
}

func TestExpireSweepSQLBoundaryAndIdempotence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewProjectionRepository(db)
	expired := NewExpiredRepository(db)
	ctx := context.Background()

	// Due windows end on the last day of the target month. With asOf pinned
	// at 2025-07-02 the regular cutoff is 2025-09-30 and the MTO cutoff is
	// 2025-08-01: June regular (end 06-30) and July MTO (end 07-31) expire,
	// October regular (end 10-31) and August MTO (end 08-31) do not.
	asOf := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	june := newProjection("v1", "JUNE", 2025, 6)
	october := newProjection("v1", "OCT", 2025, 10)
	julyMTO := newProjection("v1", "", 2025, 7)
	julyMTO.OrderType = entity.OrderTypeMTO
	julyMTO.Collection = "Hoxton"
	augustMTO := newProjection("v1", "", 2025, 8)
	augustMTO.OrderType = entity.OrderTypeMTO
	augustMTO.Collection = "Forte"
	matchedJune := newProjection("v1", "DONE", 2025, 6)
	matchedJune.MatchStatus = entity.MatchStatusMatched

	rows := []entity.Projection{june, october, julyMTO, augustMTO, matchedJune}
	if err := repo.ReplaceForVendor(ctx, rows); err != nil {
		t.Fatalf("seed projections: %v", err)
	}

	count, err := repo.ExpireSweep(ctx, asOf, 90, 30, "regular lead time", "mto lead time")
	if err != nil {
		t.Fatalf("ExpireSweep: %v", err)
	}
	if count != 2 {
		t.Fatalf("expired = %d, want june regular and july mto", count)
	}

	wantStatus := map[string]string{
		june.ID:        entity.MatchStatusExpired,
		october.ID:     entity.MatchStatusUnmatched,
		julyMTO.ID:     entity.MatchStatusExpired,
		augustMTO.ID:   entity.MatchStatusUnmatched,
		matchedJune.ID: entity.MatchStatusMatched,
	}
	for id, want := range wantStatus {
		p, err := repo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID %s: %v", id, err)
		}
		if p.MatchStatus != want {
			t.Errorf("projection %s (%s %d-%02d): status = %s, want %s",
				id, p.OrderType, p.Year, p.Month, p.MatchStatus, want)
		}
	}

	juneRow, err := repo.FindByID(ctx, june.ID)
	if err != nil {
		t.Fatalf("FindByID june: %v", err)
	}
	if juneRow.Comment != "regular lead time" {
		t.Errorf("june comment = %q", juneRow.Comment)
	}
	julyRow, err := repo.FindByID(ctx, julyMTO.ID)
	if err != nil {
		t.Fatalf("FindByID july: %v", err)
	}
	if julyRow.Comment != "mto lead time" {
		t.Errorf("july mto comment = %q", julyRow.Comment)
	}

	snaps, total, err := expired.FindAll(ctx, "v1", entity.VerificationPending, 1, 20)
	if err != nil {
		t.Fatalf("expired FindAll: %v", err)
	}
	if total != 2 {
		t.Fatalf("ledger rows = %d, want 2", total)
	}
	for _, s := range snaps {
		if s.ProjectedQty != 100 {
			t.Errorf("ledger snapshot lost projected qty: %+v", s)
		}
	}

	// Re-running against the same clock must be a no-op.
	count, err = repo.ExpireSweep(ctx, asOf, 90, 30, "regular lead time", "mto lead time")
	if err != nil {
		t.Fatalf("second ExpireSweep: %v", err)
	}
	if count != 0 {
		t.Errorf("second sweep expired %d rows", count)
	}
	_, total, err = expired.FindAll(ctx, "v1", "", 1, 20)
	if err != nil {
		t.Fatalf("expired FindAll after rerun: %v", err)
	}
	if total != 2 {
		t.Errorf("second sweep grew the ledger to %d rows", total)
	}
}
