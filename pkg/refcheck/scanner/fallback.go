package scanner

import (
	"bytes"
	"encoding/xml"
	"io"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/parser"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSnippet = 120

// Fallback re-reads the raw package parts looking for the marker in places
// the workbook model does not cover, or covers only partially when a part
// failed to decode.
type Fallback struct {
	src    parser.PartSource
	wb     *models.Workbook
	logger *zap.Logger
}

// NewFallback returns a raw scanner over src. wb supplies sheet ownership of
// parts and defined name scopes.
func NewFallback(src parser.PartSource, wb *models.Workbook, logger *zap.Logger) *Fallback {
	return &Fallback{src: src, wb: wb, logger: logger}
}

// Parts lists the parts the fallback reads: the workbook manifest, worksheets,
// tables, and charts.
func (fb *Fallback) Parts() []string {
	var parts []string
	if fb.wb.Part != "" {
		parts = append(parts, fb.wb.Part)
	}
	for _, prefix := range []string{"xl/worksheets/", "xl/tables/", "xl/charts/"} {
		for _, name := range fb.src.PartNames(prefix) {
			if strings.Contains(name, "/_rels/") || !strings.HasSuffix(strings.ToLower(name), ".xml") {
				continue
			}
			parts = append(parts, name)
		}
	}
	return parts
}

// Scan yields raw findings part by part. A part that is not well-formed XML
// yields a PartialDecodeError, and the rest of it is scanned as bytes.
func (fb *Fallback) Scan() iter.Seq2[models.Finding, error] {
	return func(yield func(models.Finding, error) bool) {
		for _, part := range fb.Parts() {
			findings, err := fb.scanPart(part)
			for _, f := range findings {
				if !yield(f, nil) {
					return
				}
			}
			if err != nil {
				fb.logger.Warn("raw part decoded as bytes",
					zap.String("part", part), zap.String("component", "fallback"), zap.Error(err))
				if !yield(models.Finding{}, err) {
					return
				}
			}
		}
	}
}

func (fb *Fallback) scanPart(part string) ([]models.Finding, error) {
	rc, err := fb.src.Open(part)
	if err != nil {
		return nil, parser.NewPartialDecodeError(part, fb.wb.OwnerOf(part), "fallback", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, parser.NewPartialDecodeError(part, fb.wb.OwnerOf(part), "fallback", err)
	}
	if !bytes.Contains(data, []byte(models.RefErrorMarker)) {
		return nil, nil
	}

	w := &rawWalker{part: part, sheet: fb.wb.OwnerOf(part), wb: fb.wb}
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		offset := decoder.InputOffset()
		token, err := decoder.Token()
		if err == io.EOF {
			return w.findings, nil
		}
		if err != nil {
			w.flushFrames()
			if f, ok := byteScan(part, w.sheet, data[offset:]); ok {
				w.findings = append(w.findings, f)
			}
			return w.findings, parser.NewPartialDecodeError(part, w.sheet, "fallback", err)
		}
		w.handle(token)
	}
}

// byteScan reports marker occurrences in data that could not be decoded.
// Only the part is known as a location.
func byteScan(part, sheet string, data []byte) (models.Finding, bool) {
	marker := []byte(models.RefErrorMarker)
	idx := bytes.Index(data, marker)
	if idx < 0 {
		return models.Finding{}, false
	}
	count := bytes.Count(data, marker)
	start := max(idx-40, 0)
	end := min(idx+len(marker)+40, len(data))
	snippet := strings.ToValidUTF8(string(data[start:end]), "")
	snippet = strings.Join(strings.Fields(snippet), " ")
	if count > 1 {
		snippet += " (" + strconv.Itoa(count) + " occurrences)"
	}
	return models.Finding{
		Location: models.PartLocation(part, sheet),
		Kind:     models.ContextRawFallback,
		Snippet:  snippet,
	}, true
}

// ruleFrame collects findings inside a range-scoped rule until its range list
// is known; x14 rules put <xm:sqref> after the formulas.
type ruleFrame struct {
	element string
	rule    string
	ref     string
	pending []string
}

// rawWalker tracks just enough element context to attribute text to a cell,
// a rule, or a defined name.
type rawWalker struct {
	part     string
	sheet    string
	wb       *models.Workbook
	stack    []string
	row      int
	col      int
	cellRef  string
	cellType string
	cellHit  bool
	fType    string
	fRef     string
	// arrays are array formula regions whose body holds the marker; cached
	// errors inside them belong to the anchor.
	arrays   []models.CellRange
	frames   []*ruleFrame
	name     *models.Location
	findings []models.Finding
}

func (w *rawWalker) handle(token xml.Token) {
	switch t := token.(type) {
	case xml.StartElement:
		w.start(t)
	case xml.EndElement:
		w.end(t)
	case xml.CharData:
		w.text(string(t))
	}
}

func (w *rawWalker) start(se xml.StartElement) {
	local := se.Name.Local
	w.stack = append(w.stack, local)

	switch local {
	case "row":
		w.col = 0
		if n, err := strconv.Atoi(attr(se, "r")); err == nil && n > 0 {
			w.row = n
		} else {
			w.row++
		}
	case "c":
		w.cellType = attr(se, "t")
		w.cellRef = ""
		w.cellHit = false
		if col, row, err := excelize.CellNameToCoordinates(attr(se, "r")); err == nil {
			w.col, w.row = col, row
		} else {
			w.col++
		}
		if name, err := excelize.CoordinatesToCellName(w.col, max(w.row, 1)); err == nil {
			w.cellRef = name
		}
	case "f":
		w.fType, w.fRef = attr(se, "t"), attr(se, "ref")
	case "dataValidation":
		w.frames = append(w.frames, &ruleFrame{element: local, rule: "data validation", ref: attr(se, "sqref")})
	case "conditionalFormatting":
		w.frames = append(w.frames, &ruleFrame{element: local, rule: "conditional formatting", ref: attr(se, "sqref")})
	case "definedName":
		scope := -1
		if n, err := strconv.Atoi(attr(se, "localSheetId")); err == nil {
			scope = n
		}
		loc := models.NameLocation(attr(se, "name"), w.wb.ScopeName(scope))
		w.name = &loc
	}

	for _, a := range se.Attr {
		if TextHasMarker(a.Value) {
			w.record(a.Name.Local + "=" + a.Value)
		}
	}
}

func (w *rawWalker) end(ee xml.EndElement) {
	local := ee.Name.Local
	if n := len(w.stack); n > 0 {
		w.stack = w.stack[:n-1]
	}
	switch local {
	case "c":
		w.cellRef, w.cellType, w.cellHit = "", "", false
	case "f":
		w.fType, w.fRef = "", ""
	case "definedName":
		w.name = nil
	case "dataValidation", "conditionalFormatting":
		if n := len(w.frames); n > 0 && w.frames[n-1].element == local {
			w.flush(w.frames[n-1])
			w.frames = w.frames[:n-1]
		}
	}
}

func (w *rawWalker) text(s string) {
	if len(w.stack) == 0 {
		return
	}
	top := w.stack[len(w.stack)-1]
	if top == "sqref" {
		if n := len(w.frames); n > 0 {
			w.frames[n-1].ref = strings.TrimSpace(s)
		}
		return
	}
	if !strings.Contains(s, models.RefErrorMarker) {
		return
	}

	var hit bool
	switch top {
	case "f", "formula", "formula1", "formula2", "definedName", "calculatedColumnFormula", "totalsRowFormula":
		hit = FormulaHasMarker(s)
	case "v":
		hit = w.cellType == "e" && strings.TrimSpace(s) == models.RefErrorMarker &&
			!w.cellHit && !w.inBrokenArray()
	default:
		hit = TextHasMarker(s)
	}
	if !hit {
		return
	}
	if top == "f" && w.fType == "array" {
		if rng, ok := parser.ParseRange(w.fRef); ok {
			w.arrays = append(w.arrays, rng)
		}
	}
	w.record(s)
}

func (w *rawWalker) inBrokenArray() bool {
	for _, rng := range w.arrays {
		if rng.Contains(w.col, w.row) {
			return true
		}
	}
	return false
}

// record attributes a hit to the innermost known context.
func (w *rawWalker) record(snippet string) {
	snippet = truncate(strings.TrimSpace(snippet))
	if n := len(w.frames); n > 0 {
		w.frames[n-1].pending = append(w.frames[n-1].pending, snippet)
		return
	}
	loc := models.PartLocation(w.part, w.sheet)
	switch {
	case w.name != nil:
		loc = *w.name
	case w.cellRef != "" && w.sheet != "":
		loc = models.CellLocation(w.sheet, w.cellRef)
		w.cellHit = true
	}
	w.findings = append(w.findings, models.Finding{Location: loc, Kind: models.ContextRawFallback, Snippet: snippet})
}

func (w *rawWalker) flush(frame *ruleFrame) {
	loc := models.PartLocation(w.part, w.sheet)
	if frame.ref != "" && w.sheet != "" {
		loc = models.Location{Sheet: w.sheet, Ref: frame.ref, Rule: frame.rule}
	}
	for _, snippet := range frame.pending {
		w.findings = append(w.findings, models.Finding{Location: loc, Kind: models.ContextRawFallback, Snippet: snippet})
	}
	frame.pending = nil
}

// flushFrames emits whatever open rules collected before a decode error.
func (w *rawWalker) flushFrames() {
	for i := len(w.frames) - 1; i >= 0; i-- {
		w.flush(w.frames[i])
	}
	w.frames = nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxSnippet {
		return s
	}
	r := []rune(s)
	return string(r[:maxSnippet]) + "..."
}
