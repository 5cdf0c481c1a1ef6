package models

import (
	"sort"
	"strings"
)

// RefErrorMarker is the literal left behind when a referenced cell or range is deleted.
const RefErrorMarker = "#REF!"

// ContextKind identifies where a marker occurrence was found.
type ContextKind int

const (
	// ContextCellFormula is a cell formula (including shared formula dependents).
	ContextCellFormula ContextKind = iota + 1
	// ContextCachedError is a stored cell value carrying the marker.
	ContextCachedError
	// ContextArrayFormula is an array formula body, attributed to its anchor.
	ContextArrayFormula
	// ContextDataValidation is one of a validation rule's formula slots.
	ContextDataValidation
	// ContextDefinedName is a defined-name expression.
	ContextDefinedName
	// ContextRawFallback is an occurrence only the raw part pass saw.
	ContextRawFallback
)

func (k ContextKind) String() string {
	switch k {
	case ContextCellFormula:
		return "cell formula"
	case ContextCachedError:
		return "cached error"
	case ContextArrayFormula:
		return "array formula"
	case ContextDataValidation:
		return "data validation"
	case ContextDefinedName:
		return "defined name"
	case ContextRawFallback:
		return "raw fallback"
	default:
		return "unknown"
	}
}

// Structured reports whether the kind comes from the structured model pass.
func (k ContextKind) Structured() bool {
	return k >= ContextCellFormula && k < ContextRawFallback
}

// Location describes where a finding lives. Only the fields relevant to the
// location's granularity are set.
type Location struct {
	// Sheet is the owning sheet; empty for workbook-level locations.
	Sheet string `json:"sheet,omitempty"`
	// Ref is a cell coordinate or, with Rule set, a range list.
	Ref string `json:"ref,omitempty"`
	// Rule names the construct owning Ref (e.g. "data validation").
	Rule string `json:"rule,omitempty"`
	// Name is a defined-name identifier.
	Name string `json:"name,omitempty"`
	// Part is the package part, used when nothing finer is recoverable.
	Part string `json:"part,omitempty"`
}

// CellLocation returns the location of a single cell.
func CellLocation(sheet, ref string) Location {
	return Location{Sheet: sheet, Ref: ref}
}

// ValidationLocation returns the location of a data validation rule.
func ValidationLocation(sheet, sqref string) Location {
	return Location{Sheet: sheet, Ref: sqref, Rule: "data validation"}
}

// NameLocation returns the location of a defined name.
func NameLocation(name, scope string) Location {
	return Location{Sheet: scope, Name: name}
}

// PartLocation returns a part-level location.
func PartLocation(part, sheet string) Location {
	return Location{Sheet: sheet, Part: part}
}

// Key is the deduplication key of the location.
func (l Location) Key() string {
	return strings.Join([]string{l.Sheet, l.Ref, l.Rule, l.Name, l.Part}, "\x00")
}

func (l Location) String() string {
	switch {
	case l.Name != "":
		if l.Sheet != "" {
			return "Defined name '" + l.Name + "' (sheet '" + l.Sheet + "')"
		}
		return "Defined name '" + l.Name + "'"
	case l.Ref != "" && l.Rule != "":
		return "Sheet '" + l.Sheet + "', " + capitalize(l.Rule) + " " + l.Ref
	case l.Ref != "":
		return "Sheet '" + l.Sheet + "', Cell " + l.Ref
	case l.Sheet != "":
		return "Sheet '" + l.Sheet + "', Part " + l.Part
	default:
		return "Part " + l.Part
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Finding is one occurrence of the marker.
type Finding struct {
	Location Location    `json:"location"`
	Kind     ContextKind `json:"kind"`
	// Snippet is the offending formula or value text.
	Snippet string `json:"snippet"`
}

// FindingSet deduplicates findings by (location, context kind). A raw fallback
// finding is dropped when any structured finding exists at the same location,
// and is replaced when a structured one arrives later.
type FindingSet struct {
	items      []Finding
	seen       map[string]bool
	structured map[string]bool
	raw        map[string]int
}

// NewFindingSet returns an empty set.
func NewFindingSet() *FindingSet {
	return &FindingSet{
		seen:       make(map[string]bool),
		structured: make(map[string]bool),
		raw:        make(map[string]int),
	}
}

// Add inserts f and reports whether it was kept.
func (s *FindingSet) Add(f Finding) bool {
	loc := f.Location.Key()
	key := loc + "\x01" + f.Kind.String()
	if s.seen[key] {
		return false
	}
	if f.Kind == ContextRawFallback {
		if s.structured[loc] {
			return false
		}
		s.raw[loc] = len(s.items)
		s.seen[key] = true
		s.items = append(s.items, f)
		return true
	}
	s.seen[key] = true
	s.structured[loc] = true
	if idx, ok := s.raw[loc]; ok {
		delete(s.raw, loc)
		delete(s.seen, loc+"\x01"+ContextRawFallback.String())
		s.items[idx] = f
		return true
	}
	s.items = append(s.items, f)
	return true
}

// Len returns the number of findings.
func (s *FindingSet) Len() int { return len(s.items) }

// Sorted returns the findings ordered by sheet document order, then row, then
// column, then context kind. Workbook-level findings come last.
func (s *FindingSet) Sorted(sheetOrder []string) []Finding {
	order := make(map[string]int, len(sheetOrder))
	for i, name := range sheetOrder {
		order[name] = i
	}
	rank := func(f Finding) int {
		if f.Location.Name != "" {
			return len(sheetOrder) + 1
		}
		if i, ok := order[f.Location.Sheet]; ok {
			return i
		}
		return len(sheetOrder)
	}

	out := make([]Finding, len(s.items))
	copy(out, s.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		ca, rowA := splitRef(a.Location.Ref)
		cb, rowB := splitRef(b.Location.Ref)
		if rowA != rowB {
			return rowA < rowB
		}
		if ca != cb {
			return ca < cb
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Location.String() < b.Location.String()
	})
	return out
}

// splitRef returns the column and row of the first cell in ref. Refs that do
// not start with a coordinate sort after those that do.
func splitRef(ref string) (col, row int) {
	ref = strings.ReplaceAll(ref, "$", "")
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	j := i
	for j < len(ref) && ref[j] >= '0' && ref[j] <= '9' {
		row = row*10 + int(ref[j]-'0')
		j++
	}
	if i == 0 || j == i {
		return 1 << 30, 1 << 30
	}
	return col, row
}
