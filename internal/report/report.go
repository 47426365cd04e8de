// Package report exports a student's mastery as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-adaptive/internal/knowledge"
)

// Sheet names.
const (
	MasterySheet  = "Mastery"
	ProgressSheet = "Progress"
)

const dateLayout = "2006-01-02"

// WriteWorkbook writes a workbook with the current mastery on one sheet and
// the per-attempt progress history on another.
func WriteWorkbook(w io.Writer, summary knowledge.Summary, progress []knowledge.ProgressPoint) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), MasterySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeMastery(f, summary); err != nil {
		return err
	}

	if _, err := f.NewSheet(ProgressSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeProgress(f, progress); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeMastery(f *excelize.File, s knowledge.Summary) error {
	rows := [][]any{
		{"Topic", "Score", "Level", "Updated At"},
		{"Overall", s.Overall.Score, string(s.Overall.Level), ""},
	}
	for _, r := range s.Topics {
		rows = append(rows, []any{r.Topic, r.Score, string(r.Level), r.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	if err := setRows(f, MasterySheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(MasterySheet, "A", "A", 28)
}

func writeProgress(f *excelize.File, points []knowledge.ProgressPoint) error {
	seen := make(map[string]struct{})
	var topics []string
	for _, p := range points {
		for t := range p.Topics {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				topics = append(topics, t)
			}
		}
	}
	sort.Strings(topics)

	header := []any{"Date", "Quiz", "Overall Score", "Overall Level"}
	for _, t := range topics {
		header = append(header, t)
	}
	rows := [][]any{header}

	for _, p := range points {
		row := []any{p.Date.UTC().Format(dateLayout), p.QuizID, p.OverallScore, string(p.OverallLevel)}
		for _, t := range topics {
			if ts, ok := p.Topics[t]; ok {
				row = append(row, ts.Score)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return setRows(f, ProgressSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
