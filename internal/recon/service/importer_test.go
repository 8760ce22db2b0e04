package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeObjectStore struct {
	keys []string
}

func (s *fakeObjectStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	s.keys = append(s.keys, objectName)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

// buildWorkbook writes a single-sheet projection workbook with a header row
// followed by the given data rows.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Brand", "Order Type", "SKU", "Collection", "Year", "Month", "Projected Qty", "Projected Value"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}
	return buf.Bytes()
}

func newTestImportService(repo *fakeProjectionRepo, store *fakeObjectStore, locker *fakeLocker) *ImportService {
	logger := zap.NewNop()
	archival := NewArchivalService(repo, logger)
	archival.now = func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }
	svc := NewImportService(repo, archival, store, locker, "merchops", logger)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestImportWorkbookArchivesAndReplaces(t *testing.T) {
	repo := newFakeProjectionRepo()
	repo.add(entity.Projection{
		ID: "stale", VendorID: "v1", SKU: "OLD-1",
		OrderType: entity.OrderTypeRegular, Year: 2025, Month: 3,
		MatchStatus: entity.MatchStatusMatched,
	})

	store := &fakeObjectStore{}
	locker := &fakeLocker{}
	svc := newTestImportService(repo, store, locker)

	data := buildWorkbook(t, [][]interface{}{
		{"Harborline", "regular", "SKU-1", "", 2025, 8, 1000, "50,000.00"},
		{"Harborline", "MTO", "", "Hoxton", 2025, 9, 40, "8000"},
		{"Harborline", "regular", "", "", 2025, 8, 10, "100"}, // missing SKU
		{"Harborline", "regular", "SKU-2", "", 2025, 13, 10, "100"}, // bad month
	})

	result, err := svc.ImportWorkbook(context.Background(), "v1", "projections.xlsx", data)
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}

	if result.ImportedCount != 2 {
		t.Errorf("ImportedCount = %d, want 2", result.ImportedCount)
	}
	if result.ArchivedCount != 1 {
		t.Errorf("ArchivedCount = %d, want 1", result.ArchivedCount)
	}
	if len(result.RowErrors) != 2 {
		t.Errorf("RowErrors = %v, want 2 entries", result.RowErrors)
	}
	if len(store.keys) != 1 || !strings.HasPrefix(store.keys[0], "imports/v1/") {
		t.Errorf("workbook not retained under imports/v1/: %v", store.keys)
	}
	if len(locker.obtained) != 1 || locker.obtained[0] != "recon:match:v1" {
		t.Errorf("import ran without the vendor's matching lock: %v", locker.obtained)
	}

	if len(repo.rows) != 2 {
		t.Fatalf("live rows = %d, want 2", len(repo.rows))
	}
	if _, stillThere := repo.rows["stale"]; stillThere {
		t.Error("stale projection survived the re-import")
	}
	if len(repo.history) != 1 || repo.history[0].SKU != "OLD-1" {
		t.Errorf("history = %+v, want the pre-import snapshot", repo.history)
	}

	var mto, regular *entity.Projection
	for id := range repo.rows {
		p := repo.rows[id]
		switch p.OrderType {
		case entity.OrderTypeMTO:
			mto = &p
		default:
			regular = &p
		}
	}
	if regular == nil || regular.SKU != "SKU-1" || regular.ProjectedQty != 1000 || regular.ProjectedValue != 5000000 {
		t.Errorf("regular row = %+v", regular)
	}
	if regular != nil && regular.MatchStatus != entity.MatchStatusUnmatched {
		t.Errorf("imported row status = %s, want unmatched", regular.MatchStatus)
	}
	if mto == nil || mto.Collection != "Hoxton" || mto.ProjectedValue != 800000 {
		t.Errorf("mto row = %+v", mto)
	}
}

func TestImportWorkbookWithNoValidRowsChangesNothing(t *testing.T) {
	repo := newFakeProjectionRepo()
	repo.add(entity.Projection{
		ID: "keep", VendorID: "v1", SKU: "KEEP-1",
		OrderType: entity.OrderTypeRegular, Year: 2025, Month: 8,
		MatchStatus: entity.MatchStatusUnmatched,
	})

	store := &fakeObjectStore{}
	svc := newTestImportService(repo, store, &fakeLocker{})

	data := buildWorkbook(t, [][]interface{}{
		{"Harborline", "bulk", "SKU-1", "", 2025, 8, 10, "100"}, // unknown order type
	})

	result, err := svc.ImportWorkbook(context.Background(), "v1", "projections.xlsx", data)
	if err != nil {
		t.Fatalf("ImportWorkbook: %v", err)
	}
	if result.ImportedCount != 0 || result.ArchivedCount != 0 {
		t.Errorf("result = %+v, want nothing imported or archived", result)
	}
	if len(result.RowErrors) != 1 {
		t.Errorf("RowErrors = %v, want 1 entry", result.RowErrors)
	}
	if _, kept := repo.rows["keep"]; !kept || len(repo.history) != 0 {
		t.Errorf("empty import disturbed the live set: rows=%d history=%d", len(repo.rows), len(repo.history))
	}
}

func TestImportWorkbookAbortsWhenVendorLockHeld(t *testing.T) {
	repo := newFakeProjectionRepo()
	repo.add(entity.Projection{
		ID: "keep", VendorID: "v1", SKU: "KEEP-1",
		OrderType: entity.OrderTypeRegular, Year: 2025, Month: 8,
		MatchStatus: entity.MatchStatusUnmatched,
	})
	svc := newTestImportService(repo, &fakeObjectStore{}, &fakeLocker{err: redislock.ErrNotObtained})

	data := buildWorkbook(t, [][]interface{}{
		{"Harborline", "regular", "SKU-1", "", 2025, 8, 10, "100"},
	})

	if _, err := svc.ImportWorkbook(context.Background(), "v1", "projections.xlsx", data); err == nil {
		t.Fatal("import proceeded without the vendor lock")
	}
	if _, kept := repo.rows["keep"]; !kept || len(repo.history) != 0 {
		t.Errorf("blocked import disturbed the live set: rows=%d history=%d", len(repo.rows), len(repo.history))
	}
}

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		cell    string
		want    int64
		wantErr bool
	}{
		{"58,000.00", 5800000, false},
		{"58000", 5800000, false},
		{"0.5", 50, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"n/a", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMinorUnits(tt.cell)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseMinorUnits(%q) accepted, want error", tt.cell)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseMinorUnits(%q) = (%d, %v), want %d", tt.cell, got, err, tt.want)
		}
	}
}
