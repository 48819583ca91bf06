package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	queueSheet = "Queue"
	logSheet   = "Log"
)

// WriteReport dumps the current queue and action log into an xlsx support
// report and returns the file path.
func WriteReport(dir string, mutations []models.Mutation, entries []models.LogEntry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeQueueSheet(f, mutations); err != nil {
		return "", err
	}
	if err := writeLogSheet(f, entries); err != nil {
		return "", err
	}

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("sync_report_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	path := filepath.Join(dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving report: %w", err)
	}
	return path, nil
}

func writeQueueSheet(f *excelize.File, mutations []models.Mutation) error {
	index, err := f.NewSheet(queueSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Kind", "Owner", "Created", "Status", "Attempt", "Defers", "Last Error", "Payload"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(queueSheet, cell, h)
	}

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(queueSheet, "A1", "I1", style)

	for r, m := range mutations {
		lastErr := ""
		if m.LastError != nil {
			lastErr = *m.LastError
		}
		values := []any{m.ID, string(m.Kind), m.OwnerID, m.CreatedAt, string(m.Status), m.Attempt, m.DeferCount, lastErr, string(m.Payload)}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(queueSheet, cell, v)
		}
	}

	_ = f.SetColWidth(queueSheet, "A", "A", 38)
	_ = f.SetColWidth(queueSheet, "B", "H", 16)
	_ = f.SetColWidth(queueSheet, "I", "I", 50)
	return nil
}

func writeLogSheet(f *excelize.File, entries []models.LogEntry) error {
	if _, err := f.NewSheet(logSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	headers := []string{"Mutation ID", "Kind", "Timestamp", "Status", "Details"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(logSheet, cell, h)
	}

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(logSheet, "A1", "E1", style)

	for r, e := range entries {
		values := []any{e.MutationID, string(e.Kind), e.Timestamp.Format(time.RFC3339), string(e.Status), e.Details}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(logSheet, cell, v)
		}
	}

	_ = f.SetColWidth(logSheet, "A", "A", 38)
	_ = f.SetColWidth(logSheet, "B", "D", 20)
	_ = f.SetColWidth(logSheet, "E", "E", 60)
	return nil
}
