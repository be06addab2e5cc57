package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/verledger/internal/domain"
	"github.com/rpattn/verledger/internal/repository"
)

type stubLedger struct {
	versions []domain.Version
	err      error
}

func (s *stubLedger) Insert(ctx context.Context, tx pgx.Tx, version domain.Version) (domain.Version, error) {
	return domain.Version{}, nil
}

func (s *stubLedger) InsertReserved(ctx context.Context, tx pgx.Tx, id int64, version domain.Version) (domain.Version, error) {
	return domain.Version{}, nil
}

func (s *stubLedger) PatchChanges(ctx context.Context, tx pgx.Tx, id int64, changes map[string]any) (domain.Version, error) {
	return domain.Version{}, nil
}

func (s *stubLedger) InsertProjected(ctx context.Context, tx pgx.Tx, plan repository.ProjectionPlan) ([]domain.Version, int64, error) {
	return nil, 0, nil
}

func (s *stubLedger) NextID(ctx context.Context, tx pgx.Tx) (int64, error) {
	return 0, nil
}

func (s *stubLedger) GetByID(ctx context.Context, id int64) (domain.Version, error) {
	return domain.Version{}, pgx.ErrNoRows
}

func (s *stubLedger) ListForItem(ctx context.Context, itemType string, itemID int64) ([]domain.Version, error) {
	return s.versions, s.err
}

func (s *stubLedger) FirstForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return domain.Version{}, pgx.ErrNoRows
}

func (s *stubLedger) LastForItem(ctx context.Context, itemType string, itemID int64) (domain.Version, error) {
	return domain.Version{}, pgx.ErrNoRows
}

func (s *stubLedger) CountForItem(ctx context.Context, itemType string, itemID int64) (int64, error) {
	return int64(len(s.versions)), nil
}

func TestWriteWorkbook(t *testing.T) {
	originator := uuid.MustParse("2f8a1a70-5f1e-4f54-9c2f-cc6f2d9b9a11")
	origin := "admin"
	ledger := &stubLedger{versions: []domain.Version{
		{
			ID:          1,
			Event:       domain.EventInsert,
			ItemType:    "Company",
			ItemID:      42,
			ItemChanges: map[string]any{"name": "Acme LLC"},
			InsertedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:           2,
			Event:        domain.EventUpdate,
			ItemType:     "Company",
			ItemID:       42,
			ItemChanges:  map[string]any{"city": "Hong Kong"},
			OriginatorID: &originator,
			Origin:       &origin,
			InsertedAt:   time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
		},
	}}

	service := NewService(ledger, WithSheetName("Company History"))

	var buf bytes.Buffer
	if err := service.WriteWorkbook(context.Background(), "Company", 42, &buf); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	if f.GetSheetName(0) != "Company History" {
		t.Errorf("sheet name = %s", f.GetSheetName(0))
	}

	header, err := f.GetCellValue("Company History", "A1")
	if err != nil {
		t.Fatalf("failed to read header: %v", err)
	}
	if header != "Version" {
		t.Errorf("header A1 = %s", header)
	}

	checks := map[string]string{
		"A2": "1",
		"B2": "insert",
		"C2": "Company",
		"D2": "42",
		"E2": `{"name":"Acme LLC"}`,
		"I2": "2024-03-01T12:00:00Z",
		"B3": "update",
		"E3": `{"city":"Hong Kong"}`,
		"F3": originator.String(),
		"G3": "admin",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue("Company History", cell)
		if err != nil {
			t.Fatalf("failed to read %s: %v", cell, err)
		}
		if got != want {
			t.Errorf("cell %s = %q, want %q", cell, got, want)
		}
	}
}

func TestWriteWorkbookEmptyHistory(t *testing.T) {
	service := NewService(&stubLedger{})

	var buf bytes.Buffer
	if err := service.WriteWorkbook(context.Background(), "Company", 7, &buf); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("History")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}

func TestFileName(t *testing.T) {
	service := NewService(&stubLedger{})
	service.now = func() time.Time { return time.Date(2024, 3, 5, 8, 15, 30, 0, time.UTC) }

	if got := service.FileName("Company", 42); got != "Company-42-history-20240305T081530Z.xlsx" {
		t.Errorf("FileName = %s", got)
	}
}
