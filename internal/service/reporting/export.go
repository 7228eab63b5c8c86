package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/stockwatch/internal/domain/models"
)

const exportSheet = "Low stock"

var exportHeadings = []string{"Item ID", "Name", "Category", "Location", "Quantity", "Minimum", "Shortfall", "First low at"}

// LowStockWorkbook builds an xlsx workbook with one row per low item.
func (s *Service) LowStockWorkbook(entries []models.LowStockEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename export sheet: %w", err)
	}

	for i, h := range exportHeadings {
		if err := setCell(f, i+1, 1, h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	for r, row := range s.LowStockRows(entries) {
		values := []interface{}{row.ItemID, row.Name, row.Category, row.Location, row.Quantity, row.Minimum, row.Shortfall, s.FormatTime(row.FirstLowAt)}
		for c, v := range values {
			if err := setCell(f, c+1, r+2, v); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	return f, nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(exportSheet, cell, value); err != nil {
		return fmt.Errorf("write cell %s: %w", cell, err)
	}
	return nil
}
