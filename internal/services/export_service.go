package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/alimgiray/devfolio/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Profiles"

var exportHeader = []interface{}{
	"Username", "Name", "Bio", "Public Repos", "Followers", "GitHub Created At", "Ingested At", "Avatar Key",
}

// ExportService renders the gallery as a spreadsheet
type ExportService struct {
	profileService *ProfileService
}

func NewExportService(profileService *ProfileService) *ExportService {
	return &ExportService{
		profileService: profileService,
	}
}

// WriteGallery writes every stored profile as one row of an xlsx workbook.
// Signed URLs are left out since they expire long before a file is shared.
func (s *ExportService) WriteGallery(ctx context.Context, w io.Writer) error {
	records, err := s.profileService.Records(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(record)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row for %s: %w", record.Username, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "H", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return f.Write(w)
}

func exportRow(record *models.ProfileRecord) []interface{} {
	return []interface{}{
		record.Username,
		stringOrEmpty(record.Name),
		stringOrEmpty(record.Bio),
		record.PublicRepos,
		record.Followers,
		record.GitHubCreatedAt.UTC().Format(time.RFC3339),
		record.CreatedAt.UTC().Format(time.RFC3339),
		record.AvatarKey,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
