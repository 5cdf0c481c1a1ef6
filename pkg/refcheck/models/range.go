package models

import "strconv"

// CellRange represents cell coordinate bounds (1-based, inclusive).
type CellRange struct {
	// R1 is the start row.
	R1 int `json:"r1"`
	// C1 is the start column.
	C1 int `json:"c1"`
	// R2 is the end row.
	R2 int `json:"r2"`
	// C2 is the end column.
	C2 int `json:"c2"`
}

// Contains reports whether the given coordinate lies inside the range.
func (r CellRange) Contains(col, row int) bool {
	return row >= r.R1 && row <= r.R2 && col >= r.C1 && col <= r.C2
}

// IsZero reports whether the range is unset.
func (r CellRange) IsZero() bool {
	return r == CellRange{}
}

// String renders the range in A1 notation.
func (r CellRange) String() string {
	from := ColumnName(r.C1) + strconv.Itoa(r.R1)
	to := ColumnName(r.C2) + strconv.Itoa(r.R2)
	if from == to {
		return from
	}
	return from + ":" + to
}

// ColumnName converts a 1-based column number to its letter form.
func ColumnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
