package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names understood by ReadWorkbook.
const (
	SheetRegions = "Regions"
	SheetCatalog = "Catalog"
	SheetQuizzes = "Quizzes"
)

// ReadWorkbook builds a catalog from a spreadsheet maintained by course
// authors. Expected sheets (first row is a header):
//
//	Regions: id | name | display_name | position | color
//	Catalog: region | concept | concept_title | order | topic | topic_title | subtopic | subtopic_title | content_id
//	Quizzes: concept | passing_score | question | prompt | A | B | C | D | correct (A-D)
//
// The Quizzes sheet is optional.
func ReadWorkbook(r io.Reader) (*Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	cat := &Catalog{}

	regionRows, err := f.GetRows(SheetRegions)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", SheetRegions, err)
	}
	for i, row := range dataRows(regionRows) {
		if cell(row, 0) == "" {
			continue
		}
		pos, err := atoiOr(cell(row, 3), i)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: position: %w", SheetRegions, i+2, err)
		}
		cat.Regions = append(cat.Regions, Region{
			ID:          cell(row, 0),
			Name:        cell(row, 1),
			DisplayName: cell(row, 2),
			Position:    pos,
			Color:       cell(row, 4),
		})
	}

	catalogRows, err := f.GetRows(SheetCatalog)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", SheetCatalog, err)
	}
	conceptAt := make(map[string]int)
	for i, row := range dataRows(catalogRows) {
		conceptID := cell(row, 1)
		if conceptID == "" {
			continue
		}
		ci, ok := conceptAt[conceptID]
		if !ok {
			order, err := atoiOr(cell(row, 3), len(conceptAt))
			if err != nil {
				return nil, fmt.Errorf("%s row %d: order: %w", SheetCatalog, i+2, err)
			}
			cat.Concepts = append(cat.Concepts, Concept{
				ID:       conceptID,
				RegionID: cell(row, 0),
				Title:    cell(row, 2),
				Order:    order,
			})
			ci = len(cat.Concepts) - 1
			conceptAt[conceptID] = ci
		}
		con := &cat.Concepts[ci]

		topicID := cell(row, 4)
		if topicID == "" {
			continue
		}
		ti := -1
		for j := range con.Topics {
			if con.Topics[j].ID == topicID {
				ti = j
				break
			}
		}
		if ti < 0 {
			con.Topics = append(con.Topics, Topic{ID: topicID, Title: cell(row, 5)})
			ti = len(con.Topics) - 1
		}

		subtopicID := cell(row, 6)
		if subtopicID == "" {
			continue
		}
		contentID, err := atoiOr(cell(row, 8), 0)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: content_id: %w", SheetCatalog, i+2, err)
		}
		con.Topics[ti].Subtopics = append(con.Topics[ti].Subtopics, Subtopic{
			ID:        subtopicID,
			Title:     cell(row, 7),
			ContentID: contentID,
		})
	}

	if idx, _ := f.GetSheetIndex(SheetQuizzes); idx >= 0 {
		quizRows, err := f.GetRows(SheetQuizzes)
		if err != nil {
			return nil, fmt.Errorf("reading %s sheet: %w", SheetQuizzes, err)
		}
		for i, row := range dataRows(quizRows) {
			ci, ok := conceptAt[cell(row, 0)]
			if !ok {
				continue
			}
			quiz := &cat.Concepts[ci].Quiz
			if ps := cell(row, 1); ps != "" {
				score, err := strconv.Atoi(ps)
				if err != nil {
					return nil, fmt.Errorf("%s row %d: passing_score: %w", SheetQuizzes, i+2, err)
				}
				quiz.PassingScore = score
			}
			if cell(row, 2) == "" {
				continue
			}
			correct := OptionIndex(cell(row, 8))
			if correct < 0 {
				correct = 0
			}
			quiz.Questions = append(quiz.Questions, Question{
				ID:      cell(row, 2),
				Prompt:  cell(row, 3),
				Options: []string{cell(row, 4), cell(row, 5), cell(row, 6), cell(row, 7)},
				Correct: correct,
			})
		}
	}

	cat.normalize()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func atoiOr(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}
