package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/xuri/excelize/v2"
)

// xlsxF is a cell formula.
type xlsxF struct {
	Content string `xml:",chardata"`
	T       string `xml:"t,attr"`
	Ref     string `xml:"ref,attr"`
	Si      string `xml:"si,attr"`
}

// xlsxC is a single <c> element.
type xlsxC struct {
	R  string  `xml:"r,attr"`
	T  string  `xml:"t,attr"`
	F  *xlsxF  `xml:"f"`
	V  *string `xml:"v"`
	IS *xlsxSI `xml:"is"`
}

// xlsxFormula holds a validation formula. The x14 extension variant wraps the
// text in an <xm:f> child.
type xlsxFormula struct {
	Content string `xml:",chardata"`
	F       string `xml:"f"`
}

func (f *xlsxFormula) text() string {
	if f == nil {
		return ""
	}
	if f.F != "" {
		return f.F
	}
	return f.Content
}

// xlsxDataValidation covers both <dataValidation> and <x14:dataValidation>;
// the latter stores its range list in an <xm:sqref> child.
type xlsxDataValidation struct {
	Type      string       `xml:"type,attr"`
	Sqref     string       `xml:"sqref,attr"`
	SqrefElem string       `xml:"sqref"`
	Formula1  *xlsxFormula `xml:"formula1"`
	Formula2  *xlsxFormula `xml:"formula2"`
}

// worksheetDecoder streams one worksheet part into a sheet model.
type worksheetDecoder struct {
	sheet  *models.Sheet
	shared []string
	row    int
	col    int
	issues []error
}

// parseWorksheet decodes cells, array and shared formulas, and validations.
// Bad cells are recorded and skipped; a syntax error ends the sheet with
// whatever was decoded up to that point.
func parseWorksheet(r io.Reader, sheet *models.Sheet, shared []string) []error {
	d := &worksheetDecoder{sheet: sheet, shared: shared}
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return d.issues
		}
		if err != nil {
			d.issue("cells", err)
			return d.issues
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "dimension":
			if ref, ok := attrValue(se, "ref"); ok {
				if rng, ok := ParseRange(ref); ok {
					sheet.Dimension = rng
				}
			}
		case "row":
			d.startRow(se)
		case "c":
			var c xlsxC
			if err := decoder.DecodeElement(&c, &se); err != nil {
				d.issue("cells", err)
				return d.issues
			}
			d.addCell(&c)
		case "dataValidation":
			var dv xlsxDataValidation
			if err := decoder.DecodeElement(&dv, &se); err != nil {
				d.issue("validations", err)
				return d.issues
			}
			d.addValidation(&dv)
		}
	}
}

func (d *worksheetDecoder) issue(component string, err error) {
	d.issues = append(d.issues, NewPartialDecodeError(d.sheet.Part, d.sheet.Name, component, err))
}

func (d *worksheetDecoder) startRow(se xml.StartElement) {
	d.col = 0
	if v, ok := attrValue(se, "r"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			d.row = n
			return
		}
	}
	d.row++
}

// position resolves the cell coordinate. Cells without r follow the previous
// cell in the row.
func (d *worksheetDecoder) position(ref string) (string, int, int) {
	if ref != "" {
		col, row, err := excelize.CellNameToCoordinates(ref)
		if err == nil {
			d.col, d.row = col, row
			return cellName(col, row), col, row
		}
		d.issue("cells", fmt.Errorf("invalid cell reference %q", ref))
	}
	d.col++
	row := d.row
	if row == 0 {
		row = 1
	}
	return cellName(d.col, row), d.col, row
}

func (d *worksheetDecoder) addCell(c *xlsxC) {
	ref, col, row := d.position(c.R)
	if ref == "" {
		return
	}

	value, hasValue := d.value(ref, c)
	if c.F == nil && !hasValue {
		return
	}

	cell := &models.Cell{Ref: ref, Col: col, Row: row, Value: value}
	if c.F != nil {
		if hasValue {
			cached := value
			cell.Cached = &cached
		}
		cell.Value = models.FormulaValue(c.F.Content)
		d.addFormula(cell, c.F)
	}
	d.sheet.Cells[ref] = cell
}

func (d *worksheetDecoder) value(ref string, c *xlsxC) (models.Value, bool) {
	if c.T == "inlineStr" {
		if c.IS == nil {
			return models.EmptyValue(), false
		}
		return models.TextValue(c.IS.text()), true
	}
	if c.V == nil {
		return models.EmptyValue(), false
	}
	raw := *c.V
	switch c.T {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(d.shared) {
			d.issue("cells", fmt.Errorf("cell %s: shared string index %q out of range", ref, raw))
			return models.EmptyValue(), false
		}
		return models.TextValue(d.shared[idx]), true
	case "str", "d":
		return models.TextValue(raw), true
	case "b":
		return models.BoolValue(strings.TrimSpace(raw) == "1"), true
	case "e":
		return models.ErrorValue(strings.TrimSpace(raw)), true
	default:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return models.TextValue(raw), true
		}
		return models.NumberValue(raw, n), true
	}
}

func (d *worksheetDecoder) addFormula(cell *models.Cell, f *xlsxF) {
	switch f.T {
	case "array":
		cell.ArrayAnchor = true
		rng, ok := ParseRange(f.Ref)
		if !ok {
			rng = models.CellRange{R1: cell.Row, C1: cell.Col, R2: cell.Row, C2: cell.Col}
		}
		d.sheet.ArrayFormulas = append(d.sheet.ArrayFormulas, models.ArrayFormula{
			Anchor:  cell.Ref,
			Ref:     f.Ref,
			Range:   rng,
			Formula: f.Content,
		})
	case "shared":
		si, err := strconv.Atoi(f.Si)
		if err != nil {
			d.issue("cells", fmt.Errorf("cell %s: invalid shared formula index %q", cell.Ref, f.Si))
			return
		}
		cell.SharedIndex = &si
		if f.Content != "" {
			d.sheet.SharedFormulas[si] = models.SharedFormula{
				Anchor:  cell.Ref,
				Ref:     f.Ref,
				Formula: f.Content,
			}
		}
	}
}

func (d *worksheetDecoder) addValidation(dv *xlsxDataValidation) {
	sqref := dv.Sqref
	if sqref == "" {
		sqref = strings.TrimSpace(dv.SqrefElem)
	}
	d.sheet.Validations = append(d.sheet.Validations, models.DataValidation{
		Sqref:    sqref,
		Ranges:   parseSqref(sqref),
		Type:     dv.Type,
		Formula1: dv.Formula1.text(),
		Formula2: dv.Formula2.text(),
	})
}
