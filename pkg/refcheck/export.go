package refcheck

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportDir returns the directory sheets of inputPath are exported to:
// <root>/<stem>/sheets.
func ExportDir(root, inputPath string) string {
	return filepath.Join(root, fileStem(inputPath), "sheets")
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExportSheets writes one CSV per sheet holding formula text (prefixed with
// "=") or the stored value of each cell. Formulas are never evaluated. Any
// previous export of the same file is removed first. wb, when given, widens
// each grid to cells that hold a formula but no stored value.
func ExportSheets(inputPath, root string, wb *models.Workbook, logger *zap.Logger) (string, error) {
	f, err := excelize.OpenFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", inputPath, err)
	}
	defer f.Close()

	stemDir := filepath.Join(root, fileStem(inputPath))
	if err := os.RemoveAll(stemDir); err != nil {
		return "", fmt.Errorf("remove previous export: %w", err)
	}
	dir := ExportDir(root, inputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	for _, sheetName := range f.GetSheetList() {
		grid, err := sheetGrid(f, sheetName, modelExtent(wb, sheetName))
		if err != nil && strings.HasSuffix(err.Error(), "is not a worksheet") {
			logger.Debug("skipped non-worksheet", zap.String("sheet", sheetName))
			continue
		}
		if err != nil {
			return dir, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
		out := filepath.Join(dir, sheetFileName(sheetName)+".csv")
		if err := writeGrid(out, grid); err != nil {
			return dir, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
		logger.Debug("exported sheet", zap.String("sheet", sheetName), zap.String("file", out), zap.Int("rows", len(grid)))
	}
	return dir, nil
}

// sheetGrid returns the sheet as a rectangle anchored at A1. Formula cells
// hold "=" + formula text; other cells hold their raw value.
func sheetGrid(f *excelize.File, sheetName string, extent models.CellRange) ([][]string, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	maxRow, maxCol := max(len(rows), extent.R2), extent.C2
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}

	grid := make([][]string, maxRow)
	for r := range grid {
		grid[r] = make([]string, maxCol)
		if r < len(rows) {
			copy(grid[r], rows[r])
		}
		for c := range grid[r] {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			formula, err := f.GetCellFormula(sheetName, cell)
			if err != nil {
				return nil, err
			}
			if formula != "" {
				grid[r][c] = "=" + formula
			}
		}
	}
	return trimGrid(grid), nil
}

// modelExtent returns the bounds of the decoded cells of a sheet.
func modelExtent(wb *models.Workbook, sheetName string) models.CellRange {
	var extent models.CellRange
	if wb == nil {
		return extent
	}
	sheet, ok := wb.Sheet(sheetName)
	if !ok {
		return extent
	}
	for _, c := range sheet.Cells {
		extent.R2 = max(extent.R2, c.Row)
		extent.C2 = max(extent.C2, c.Col)
	}
	return extent
}

// trimGrid drops trailing empty rows and columns, keeping the A1 origin.
func trimGrid(grid [][]string) [][]string {
	maxRow, maxCol := findDataBounds(grid)
	if maxRow < 0 {
		return nil
	}
	grid = grid[:maxRow+1]
	for i := range grid {
		grid[i] = grid[i][:maxCol+1]
	}
	return grid
}

// findDataBounds returns the last row and column index holding data, or -1.
func findDataBounds(rows [][]string) (maxRow, maxCol int) {
	maxRow, maxCol = -1, -1
	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if cell != "" {
				maxRow = max(maxRow, rowIdx)
				maxCol = max(maxCol, colIdx)
			}
		}
	}
	return
}

// writeGrid writes grid as CSV. An empty grid produces an empty file.
func writeGrid(path string, grid [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if err := w.WriteAll(grid); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func sheetFileName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	name = replacer.Replace(name)
	if name == "." || name == ".." {
		name = "_" + name
	}
	return name
}
