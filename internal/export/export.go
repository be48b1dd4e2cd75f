// Package export renders tasks as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/phrazzld/taskboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the single worksheet of an export.
	SheetName = "Tasks"

	// ContentType is the media type of the produced workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// FileName is suggested to clients in Content-Disposition.
	FileName = "tasks.xlsx"

	timestampLayout = "2006-01-02 15:04:05"
)

// Headings is the fixed header row.
var Headings = []string{
	"ID",
	"Name",
	"Description",
	"Start Date",
	"End Date",
	"Category Id",
	"Image",
	"Created At",
	"Updated At",
}

// WriteTasks writes a workbook with a header row followed by one row per task, in the given order.
func WriteTasks(w io.Writer, tasks []*domain.Task) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// NewFile starts with "Sheet1".
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Headings)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, taskRow(t)); err != nil {
			return fmt.Errorf("failed to write task %d: %w", t.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func taskRow(t *domain.Task) []any {
	return []any{
		t.ID,
		t.Name,
		deref(t.Description),
		t.StartDate.String(),
		t.EndDate.String(),
		t.CategoryID,
		deref(t.Image),
		formatTimestamp(t.CreatedAt),
		formatTimestamp(t.UpdatedAt),
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
