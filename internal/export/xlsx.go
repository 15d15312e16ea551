// Package export writes ledger items to spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/loopapp/loop-vision/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Items"

var headers = []string{
	"Created",
	"Title",
	"Category",
	"Brand",
	"Model",
	"Condition",
	"Confidence",
	"Low",
	"Mid",
	"High",
	"Currency",
	"Tags",
	"Status",
	"ID",
}

// ItemsXLSX renders items as a workbook with one row per item.
func ItemsXLSX(items []storage.Item) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook has a single sheet
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, item := range items {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		value := item.Analysis.EstimatedValue
		write(1, item.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		write(2, item.Title)
		write(3, string(item.Category))
		write(4, item.Brand)
		write(5, item.Model)
		write(6, string(item.Condition))
		write(7, item.AIConfidence)
		write(8, value.Low)
		write(9, value.Mid)
		write(10, value.High)
		write(11, item.Currency)
		write(12, strings.Join(item.Analysis.Tags, ", "))
		write(13, item.Status)
		write(14, item.ID)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 20) // created
	_ = f.SetColWidth(sheetName, "B", "B", 48) // title
	_ = f.SetColWidth(sheetName, "C", "F", 16)
	_ = f.SetColWidth(sheetName, "L", "L", 40) // tags
	_ = f.SetColWidth(sheetName, "N", "N", 38) // id

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	log.Info().Int("rows", len(items)).Msg("exported items workbook")
	return buf.Bytes(), nil
}

// WriteItemsXLSX writes the workbook for items to w.
func WriteItemsXLSX(w io.Writer, items []storage.Item) error {
	data, err := ItemsXLSX(items)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
