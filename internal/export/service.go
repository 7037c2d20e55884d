package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

const sheet = "Extractions"

var headers = []string{
	"Source",
	"Document Type",
	"Aadhaar",
	"PAN",
	"Confidence",
	"Name",
	"Date of Birth",
	"LLM Fallback",
	"Warnings",
	"Processing (ms)",
	"Error",
}

// Row is one spreadsheet line; Err is set for runs that aborted.
type Row struct {
	Doc report.Document
	Err error
}

// Service produces XLSX bytes for batch results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// RunsXLSX returns a workbook with one row per input, in order.
func (s *Service) RunsXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		d := r.Doc

		write(1, d.Source)
		if r.Err != nil {
			write(11, truncate(r.Err.Error(), 200))
			continue
		}
		write(2, string(d.Details.DocumentType))
		if d.Aadhaar != nil {
			write(3, d.Aadhaar.Display)
		}
		if d.PAN != nil {
			write(4, d.PAN.Display)
		}
		write(5, d.Confidence)
		write(6, d.Details.Name)
		write(7, d.Details.DateOfBirth)
		write(8, fallbackLabel(d.Fallback))
		write(9, strings.Join(d.Warnings, "; "))
		write(10, d.ProcessingMS)
	}

	_ = f.SetColWidth(sheet, "A", "A", 48) // path
	_ = f.SetColWidth(sheet, "B", "B", 14)
	_ = f.SetColWidth(sheet, "C", "D", 18) // ids
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 28)
	_ = f.SetColWidth(sheet, "I", "I", 40)
	_ = f.SetColWidth(sheet, "K", "K", 48)

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

func fallbackLabel(fb report.Fallback) string {
	switch {
	case !fb.Invoked:
		return "skipped"
	case fb.Failure != "":
		return fb.Failure
	}
	return "ok"
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
