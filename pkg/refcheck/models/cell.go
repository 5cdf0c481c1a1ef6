// Package models defines the workbook model and scan findings.
package models

import "strconv"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	// KindEmpty is a cell with no stored value.
	KindEmpty ValueKind = iota
	// KindNumber is a numeric value.
	KindNumber
	// KindText is a string value, shared or inline.
	KindText
	// KindBoolean is a TRUE/FALSE value.
	KindBoolean
	// KindError is an error code such as #REF!.
	KindError
	// KindFormula is formula text without the leading '='.
	KindFormula
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindError:
		return "error"
	case KindFormula:
		return "formula"
	default:
		return "empty"
	}
}

// Value is a tagged cell value.
type Value struct {
	Kind ValueKind
	// Text carries text, error code, formula text, or the raw lexical form of a number.
	Text   string
	Number float64
	Bool   bool
}

// EmptyValue returns the empty value.
func EmptyValue() Value { return Value{} }

// NumberValue returns a numeric value keeping its stored lexical form.
func NumberValue(raw string, n float64) Value {
	return Value{Kind: KindNumber, Text: raw, Number: n}
}

// TextValue returns a text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	v := Value{Kind: KindBoolean, Bool: b, Text: "FALSE"}
	if b {
		v.Text = "TRUE"
	}
	return v
}

// ErrorValue returns an error-code value.
func ErrorValue(code string) Value { return Value{Kind: KindError, Text: code} }

// FormulaValue returns a formula value.
func FormulaValue(text string) Value { return Value{Kind: KindFormula, Text: text} }

// IsError reports whether the value is the given error code.
func (v Value) IsError(code string) bool {
	return v.Kind == KindError && v.Text == code
}

// String renders the value as it would appear in a plain export.
func (v Value) String() string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindFormula:
		return "=" + v.Text
	default:
		return v.Text
	}
}

// Cell is a single decoded cell.
type Cell struct {
	// Ref is the A1 coordinate.
	Ref string
	// Col is the 1-based column.
	Col int
	// Row is the 1-based row.
	Row int
	// Value is the stored value; KindFormula when the cell carries a formula.
	Value Value
	// Cached is the last computed result of a formula cell, if stored.
	Cached *Value
	// SharedIndex points at the sheet's shared formula group for dependent cells.
	SharedIndex *int
	// ArrayAnchor is true when the cell anchors an array formula region.
	ArrayAnchor bool
}

// Formula returns the formula text, if any.
func (c *Cell) Formula() (string, bool) {
	if c.Value.Kind != KindFormula {
		return "", false
	}
	return c.Value.Text, true
}
