// Package report exports learner progress as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

const (
	categoriesSheet = "Categories"
	topicsSheet     = "Topics"
)

var (
	categoryHeader = []any{"Category", "Title", "Completed", "Total", "Percent"}
	topicHeader    = []any{"Category", "Topic", "Title", "Sections Completed", "Sections Total", "Percent", "Completed"}
)

// WriteProgressWorkbook writes an .xlsx with one row per category and one
// row per topic. Percentages come from progress.Aggregator, so ids unknown
// to the catalog are ignored.
func WriteProgressWorkbook(w io.Writer, c *catalog.Catalog, r progress.Reader) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", categoriesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(topicsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := writeHeader(f, categoriesSheet, categoryHeader, bold); err != nil {
		return err
	}
	if err := writeHeader(f, topicsSheet, topicHeader, bold); err != nil {
		return err
	}

	agg := progress.NewAggregator(c, r)
	catRow, topicRow := 2, 2
	for _, cat := range c.Categories() {
		sum, _ := agg.CategorySummary(cat.Slug)
		if err := setRow(f, categoriesSheet, catRow, []any{
			sum.Slug, sum.Title, sum.Completed, sum.Total, sum.Percent,
		}); err != nil {
			return err
		}
		catRow++

		for _, t := range sum.Topics {
			if err := setRow(f, topicsSheet, topicRow, []any{
				cat.Slug, t.Slug, t.Title, t.SectionsCompleted, t.SectionsTotal, t.Percent, t.Completed,
			}); err != nil {
				return err
			}
			topicRow++
		}
	}

	if err := f.SetColWidth(categoriesSheet, "B", "B", 36); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(topicsSheet, "C", "C", 36); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
