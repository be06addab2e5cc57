package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/verledger/internal/domain"
	"github.com/rpattn/verledger/internal/repository"
)

// Service renders a tracked record's version chain to an xlsx workbook for
// auditors: one row per version, oldest first.
type Service struct {
	versions  repository.VersionRepository
	sheetName string
	now       func() time.Time
}

type Option func(*Service)

// WithSheetName overrides the workbook's sheet name.
func WithSheetName(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.sheetName = name
		}
	}
}

// NewService creates an export service over the ledger.
func NewService(versions repository.VersionRepository, opts ...Option) *Service {
	service := &Service{
		versions:  versions,
		sheetName: "History",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

var workbookHeader = []string{"Version", "Event", "Item Type", "Item ID", "Changes", "Originator", "Origin", "Meta", "Inserted At"}

// WriteWorkbook streams the record's history workbook to w.
func (s *Service) WriteWorkbook(ctx context.Context, itemType string, itemID int64, w io.Writer) error {
	versions, err := s.versions.ListForItem(ctx, itemType, itemID)
	if err != nil {
		return fmt.Errorf("failed to load history for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", s.sheetName); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	for col, title := range workbookHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(s.sheetName, cell, title); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, version := range versions {
		values, err := workbookRow(version)
		if err != nil {
			return err
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(s.sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write version %d: %w", version.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// FileName suggests a download name for one record's export.
func (s *Service) FileName(itemType string, itemID int64) string {
	return fmt.Sprintf("%s-%d-history-%s.xlsx", itemType, itemID, s.now().UTC().Format("20060102T150405Z"))
}

func workbookRow(version domain.Version) ([]any, error) {
	changesJSON, err := json.Marshal(version.ItemChanges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode changes for version %d: %w", version.ID, err)
	}

	originator := ""
	if version.OriginatorID != nil {
		originator = version.OriginatorID.String()
	}
	origin := ""
	if version.Origin != nil {
		origin = *version.Origin
	}
	meta := ""
	if version.Meta != nil {
		metaJSON, err := json.Marshal(version.Meta)
		if err != nil {
			return nil, fmt.Errorf("failed to encode meta for version %d: %w", version.ID, err)
		}
		meta = string(metaJSON)
	}

	return []any{
		version.ID,
		string(version.Event),
		version.ItemType,
		version.ItemID,
		string(changesJSON),
		originator,
		origin,
		meta,
		version.InsertedAt.UTC().Format(time.RFC3339),
	}, nil
}
