// Package report renders learner progress as a spreadsheet.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quest/internal/progress"
)

// Sheet names written by Write.
const (
	SheetSummary  = "Summary"
	SheetProgress = "Progress"
)

var (
	summaryHeader  = []any{"Region", "Unlocked", "Progress %", "Concepts", "Completed"}
	progressHeader = []any{"Region", "Concept", "Topic", "Subtopic", "Unlocked", "Watched", "Total", "Progress %", "Quiz score", "Quiz passed"}
)

// Write renders a learner's map as an xlsx workbook: a Summary sheet with
// one row per region and a Progress sheet with one row per concept, topic
// and subtopic.
func Write(w io.Writer, view progress.MapView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetProgress); err != nil {
		return fmt.Errorf("creating progress sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	summary := newSheet(f, SheetSummary, bold)
	if err := summary.header(summaryHeader); err != nil {
		return err
	}
	detail := newSheet(f, SheetProgress, bold)
	if err := detail.header(progressHeader); err != nil {
		return err
	}

	for _, r := range view.Regions {
		completed := 0
		for _, c := range r.Concepts {
			if c.Completed {
				completed++
			}
		}
		if err := summary.row([]any{r.DisplayName, yesNo(r.Unlocked), r.Progress, len(r.Concepts), completed}); err != nil {
			return err
		}

		for _, c := range r.Concepts {
			score := ""
			if c.Completed {
				score = fmt.Sprint(c.QuizScore)
			}
			if err := detail.row([]any{r.DisplayName, c.Title, "", "", yesNo(c.Unlocked), "", "", c.Completion, score, yesNo(c.QuizPassed)}); err != nil {
				return err
			}
			for _, t := range c.Topics {
				if err := detail.row([]any{r.DisplayName, c.Title, t.Title, "", yesNo(t.Unlocked), "", "", t.Progress}); err != nil {
					return err
				}
				for _, s := range t.Subtopics {
					total := any("")
					if s.Total != nil {
						total = *s.Total
					}
					if err := detail.row([]any{r.DisplayName, c.Title, t.Title, s.Title, "", s.Watched, total, s.Progress}); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := f.SetColWidth(SheetProgress, "A", "D", 24); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type sheet struct {
	f     *excelize.File
	name  string
	style int
	next  int
}

func newSheet(f *excelize.File, name string, headerStyle int) *sheet {
	return &sheet{f: f, name: name, style: headerStyle, next: 1}
}

func (s *sheet) header(values []any) error {
	first := s.next
	if err := s.row(values); err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(1, first)
	to, _ := excelize.CoordinatesToCellName(len(values), first)
	if err := s.f.SetCellStyle(s.name, from, to, s.style); err != nil {
		return fmt.Errorf("styling %s header: %w", s.name, err)
	}
	return nil
}

func (s *sheet) row(values []any) error {
	ref, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(s.name, ref, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", s.name, s.next, err)
	}
	s.next++
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
