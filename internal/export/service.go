package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomide-ak/invoice-bridge/internal/repository"
)

// Service is a tiny façade over the outcome repository that produces XLSX
// bytes for processing-report downloads.
type Service struct {
	outcomes repository.OutcomeRepository
	logger   *slog.Logger
}

func NewService(outcomes repository.OutcomeRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{outcomes: outcomes, logger: logger}
}

// ExportOutcomesXLSX returns an XLSX workbook (as bytes) with the most recent
// processing outcomes, one row per submission, newest first.
func (s *Service) ExportOutcomesXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	rows, err := s.outcomes.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Outcomes"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Processed At",
		"Tracking ID",
		"Filename",
		"Status",
		"Failed Step",
		"Message",
		"Errors",
		"EDI File Path",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	rowNum := 2
	for _, o := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if !o.CreatedAt.IsZero() {
			write(1, o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		} else {
			write(1, "")
		}
		write(2, o.TrackingID)
		write(3, o.Filename)
		write(4, string(o.Status))
		write(5, o.FailedStep)
		write(6, truncate(o.Message, 140))
		write(7, len(o.StepErrors))
		write(8, o.EDILocator)

		rowNum++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 20) // timestamp
	_ = f.SetColWidth(sheet, "B", "B", 38) // tracking id
	_ = f.SetColWidth(sheet, "C", "C", 28) // filename
	_ = f.SetColWidth(sheet, "D", "E", 22) // status, step
	_ = f.SetColWidth(sheet, "F", "F", 48) // message
	_ = f.SetColWidth(sheet, "H", "H", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
