package models

import "sort"

// DataValidation is a validation rule attached to one or more ranges.
type DataValidation struct {
	// Sqref is the space-separated list of ranges as stored.
	Sqref string
	// Ranges are the parsed ranges of Sqref; unparsable entries are skipped.
	Ranges []CellRange
	// Type is the validation type (list, whole, custom, ...).
	Type string
	// Formula1 is the first comparison formula.
	Formula1 string
	// Formula2 is the second comparison formula (between / notBetween).
	Formula2 string
}

// ArrayFormula is a formula anchored at one cell covering a rectangular range.
type ArrayFormula struct {
	// Anchor is the A1 coordinate holding the formula.
	Anchor string
	// Ref is the covered range as stored.
	Ref string
	// Range is the parsed covered range.
	Range CellRange
	// Formula is the formula body.
	Formula string
}

// SharedFormula is the master of a shared formula group.
type SharedFormula struct {
	// Anchor is the master cell coordinate.
	Anchor string
	// Ref is the range the group covers.
	Ref string
	// Formula is the master formula text.
	Formula string
}

// Sheet holds the decoded content of a single worksheet.
type Sheet struct {
	// Name is the sheet name, unique within the workbook.
	Name string
	// Index is the 0-based document position.
	Index int
	// Part is the package part holding the worksheet.
	Part string
	// Dimension is the declared used range, zero when absent.
	Dimension CellRange
	// Cells maps A1 coordinates to cells.
	Cells map[string]*Cell
	// Validations lists the sheet's data validation rules.
	Validations []DataValidation
	// ArrayFormulas lists array formula regions.
	ArrayFormulas []ArrayFormula
	// SharedFormulas maps shared group index to its master.
	SharedFormulas map[int]SharedFormula
}

// NewSheet returns an empty sheet.
func NewSheet(name string, index int, part string) *Sheet {
	return &Sheet{
		Name:           name,
		Index:          index,
		Part:           part,
		Cells:          make(map[string]*Cell),
		SharedFormulas: make(map[int]SharedFormula),
	}
}

// SortedCells returns the cells in row-major order.
func (s *Sheet) SortedCells() []*Cell {
	cells := make([]*Cell, 0, len(s.Cells))
	for _, c := range s.Cells {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}
