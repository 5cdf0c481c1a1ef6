package models

import "strings"

// DefinedName is a named expression scoped to the workbook or a single sheet.
type DefinedName struct {
	// Name is the identifier.
	Name string
	// Scope is the owning sheet name; empty for workbook-global names.
	Scope string
	// Expression is the refers-to formula text.
	Expression string
	// Hidden marks names Excel does not show (e.g. _xlnm._FilterDatabase).
	Hidden bool
}

// Workbook is the minimal model needed for reference scanning.
type Workbook struct {
	// BookName is the workbook file name (no path).
	BookName string
	// Sheets are the worksheets in document order.
	Sheets []*Sheet
	// DefinedNames are the workbook's defined names in document order.
	DefinedNames []DefinedName
	// SharedStrings is the shared string table, index ordered.
	SharedStrings []string
	// Part is the workbook manifest part; empty when it was absent.
	Part string
	// TabNames lists every sheet entry (worksheets, chartsheets, dialogs) in
	// document order. Defined name scopes index into it.
	TabNames []string
	// Owners maps lower-cased auxiliary part names (charts, tables) to the
	// sheet they belong to.
	Owners map[string]string
}

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SheetByPart returns the sheet stored in the given part.
func (w *Workbook) SheetByPart(part string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Part != "" && strings.EqualFold(s.Part, part) {
			return s, true
		}
	}
	return nil, false
}

// SheetNames returns sheet names in document order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// ScopeName resolves a localSheetId to a sheet name. Out of range ids yield
// an empty scope.
func (w *Workbook) ScopeName(localSheetID int) string {
	if localSheetID < 0 || localSheetID >= len(w.TabNames) {
		return ""
	}
	return w.TabNames[localSheetID]
}

// OwnerOf returns the sheet a part belongs to, if known.
func (w *Workbook) OwnerOf(part string) string {
	if s, ok := w.SheetByPart(part); ok {
		return s.Name
	}
	return w.Owners[strings.ToLower(part)]
}
