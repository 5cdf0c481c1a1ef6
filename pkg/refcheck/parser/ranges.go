package parser

import (
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/xuri/excelize/v2"
)

// parseSqref parses a space separated range list such as "A1:A10 C3".
// Entries that are not plain ranges are skipped.
func parseSqref(sqref string) []models.CellRange {
	var ranges []models.CellRange
	for _, part := range strings.Fields(sqref) {
		if r, ok := ParseRange(part); ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

// ParseRange parses $A$1:$D$10 or a single cell into a normalized range.
func ParseRange(rangeStr string) (models.CellRange, bool) {
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")
	if idx := strings.LastIndex(rangeStr, "!"); idx >= 0 {
		rangeStr = rangeStr[idx+1:]
	}

	parts := strings.Split(rangeStr, ":")
	if len(parts) > 2 {
		return models.CellRange{}, false
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return models.CellRange{}, false
	}
	endCol, endRow := startCol, startRow
	if len(parts) == 2 {
		endCol, endRow, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return models.CellRange{}, false
		}
	}

	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}
	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	return models.CellRange{R1: startRow, C1: startCol, R2: endRow, C2: endCol}, true
}

// cellName formats 1-based coordinates as an A1 reference.
func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return name
}
