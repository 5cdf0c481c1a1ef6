package parser

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func buildFrom(t *testing.T, path string) (*models.Workbook, []error) {
	t.Helper()
	a, err := OpenArchive(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	wb, issues, err := BuildWorkbook(a, filepath.Base(path), zap.NewNop())
	require.NoError(t, err)
	return wb, issues
}

func TestBuildWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Lookup")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Header"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 42.5))
	require.NoError(t, f.SetCellValue("Sheet1", "C3", true))
	require.NoError(t, f.SetCellFormula("Sheet1", "D4", "SUM(B2,#REF!)"))
	require.NoError(t, f.SetCellValue("Lookup", "A1", "x"))

	dv := excelize.NewDataValidation(true)
	dv.Sqref = "E1:E5"
	dv.SetSqrefDropList("Lookup!$A$1:$A$3")
	require.NoError(t, f.AddDataValidation("Sheet1", dv))

	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Rates", RefersTo: "Lookup!$A$1:$A$3"}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Local", RefersTo: "Lookup!#REF!", Scope: "Lookup"}))

	path := filepath.Join(t.TempDir(), "model.xlsx")
	require.NoError(t, f.SaveAs(path))

	wb, issues := buildFrom(t, path)
	assert.Empty(t, issues)
	assert.Equal(t, "model.xlsx", wb.BookName)
	assert.Equal(t, "xl/workbook.xml", wb.Part)
	assert.Equal(t, []string{"Sheet1", "Lookup"}, wb.SheetNames())

	sheet, ok := wb.Sheet("Sheet1")
	require.True(t, ok)
	assert.Equal(t, "xl/worksheets/sheet1.xml", sheet.Part)

	require.Contains(t, sheet.Cells, "A1")
	assert.Equal(t, models.TextValue("Header"), sheet.Cells["A1"].Value)
	require.Contains(t, sheet.Cells, "B2")
	assert.Equal(t, models.KindNumber, sheet.Cells["B2"].Value.Kind)
	assert.Equal(t, 42.5, sheet.Cells["B2"].Value.Number)
	require.Contains(t, sheet.Cells, "C3")
	assert.Equal(t, models.BoolValue(true), sheet.Cells["C3"].Value)

	require.Contains(t, sheet.Cells, "D4")
	formula, ok := sheet.Cells["D4"].Formula()
	require.True(t, ok)
	assert.Equal(t, "SUM(B2,#REF!)", formula)
	assert.Equal(t, 4, sheet.Cells["D4"].Col)
	assert.Equal(t, 4, sheet.Cells["D4"].Row)

	require.Len(t, sheet.Validations, 1)
	assert.Equal(t, "E1:E5", sheet.Validations[0].Sqref)
	assert.Equal(t, "list", sheet.Validations[0].Type)
	assert.Equal(t, "Lookup!$A$1:$A$3", sheet.Validations[0].Formula1)
	assert.Equal(t, []models.CellRange{{R1: 1, C1: 5, R2: 5, C2: 5}}, sheet.Validations[0].Ranges)

	require.Len(t, wb.DefinedNames, 2)
	names := map[string]models.DefinedName{}
	for _, n := range wb.DefinedNames {
		names[n.Name] = n
	}
	assert.Equal(t, "", names["Rates"].Scope)
	assert.Equal(t, "Lookup!$A$1:$A$3", names["Rates"].Expression)
	assert.Equal(t, "Lookup", names["Local"].Scope)
	assert.Equal(t, "Lookup!#REF!", names["Local"].Expression)
}

func TestBuildWorkbookFormulaKinds(t *testing.T) {
	sheetXML := worksheet(
		`<row r="1">`+
			`<c r="A1"><f t="shared" ref="A1:A3" si="0">B1*2</f><v>2</v></c>`+
			`<c r="B1" t="e"><f t="array" ref="B1:B3">TRANSPOSE(#REF!)</f><v>#REF!</v></c>`+
			`</row>`+
			`<row r="2"><c r="A2"><f t="shared" si="0"/><v>4</v></c></row>`+
			`<row r="3"><c r="A3"><f t="shared" si="0"/></c><c r="C3" t="inlineStr"><is><t>inline</t></is></c></row>`,
	)
	wb, issues := buildFrom(t, writePackage(t, "formulas.xlsx", sheetPackage(sheetXML)...))
	assert.Empty(t, issues)
	sheet := wb.Sheets[0]

	master := sheet.Cells["A1"]
	require.NotNil(t, master.SharedIndex)
	assert.Equal(t, models.SharedFormula{Anchor: "A1", Ref: "A1:A3", Formula: "B1*2"}, sheet.SharedFormulas[0])
	require.NotNil(t, master.Cached)
	assert.Equal(t, 2.0, master.Cached.Number)

	dependent := sheet.Cells["A3"]
	text, ok := dependent.Formula()
	require.True(t, ok)
	assert.Empty(t, text, "dependents carry no text of their own")
	require.NotNil(t, dependent.SharedIndex)
	assert.Equal(t, 0, *dependent.SharedIndex)
	assert.Nil(t, dependent.Cached)

	anchor := sheet.Cells["B1"]
	assert.True(t, anchor.ArrayAnchor)
	require.NotNil(t, anchor.Cached)
	assert.True(t, anchor.Cached.IsError("#REF!"))
	require.Len(t, sheet.ArrayFormulas, 1)
	assert.Equal(t, models.ArrayFormula{
		Anchor:  "B1",
		Ref:     "B1:B3",
		Range:   models.CellRange{R1: 1, C1: 2, R2: 3, C2: 2},
		Formula: "TRANSPOSE(#REF!)",
	}, sheet.ArrayFormulas[0])

	assert.Equal(t, models.TextValue("inline"), sheet.Cells["C3"].Value)
}

func TestBuildWorkbookCellsWithoutReference(t *testing.T) {
	sheetXML := worksheet(
		`<row><c><v>1</v></c><c><v>2</v></c></row>` +
			`<row r="5"><c><v>3</v></c><c r="D5"><v>4</v></c><c><v>5</v></c></row>` +
			`<row><c t="s"><v>0</v></c></row>`,
	)
	sst := `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><r><t>rich </t></r><r><t>text</t></r><rPh><t>ignored</t></rPh></si></sst>`
	wb, issues := buildFrom(t, writePackage(t, "norefs.xlsx", sheetPackage(sheetXML, part{"xl/sharedStrings.xml", sst})...))
	assert.Empty(t, issues)

	sheet := wb.Sheets[0]
	var refs []string
	for _, c := range sheet.SortedCells() {
		refs = append(refs, c.Ref)
	}
	assert.Equal(t, []string{"A1", "B1", "A5", "D5", "E5", "A6"}, refs)
	assert.Equal(t, models.TextValue("rich text"), sheet.Cells["A6"].Value)
}

func TestBuildWorkbookX14Validation(t *testing.T) {
	ext := `<extLst><ext uri="{CCE6A557-97BC-4b89-ADB6-D9C93CAAB3DF}" xmlns:x14="http://schemas.microsoft.com/office/spreadsheetml/2009/9/main">` +
		`<x14:dataValidations count="1" xmlns:xm="http://schemas.microsoft.com/office/excel/2006/main">` +
		`<x14:dataValidation type="list" allowBlank="1"><x14:formula1><xm:f>Lists!#REF!</xm:f></x14:formula1><xm:sqref>B2:B9</xm:sqref></x14:dataValidation>` +
		`</x14:dataValidations></ext></extLst>`
	wb, _ := buildFrom(t, writePackage(t, "x14.xlsx", sheetPackage(worksheet("", ext))...))

	sheet := wb.Sheets[0]
	require.Len(t, sheet.Validations, 1)
	assert.Equal(t, "B2:B9", sheet.Validations[0].Sqref)
	assert.Equal(t, "Lists!#REF!", sheet.Validations[0].Formula1)
	assert.Empty(t, sheet.Validations[0].Formula2)
}

func TestBuildWorkbookMalformedSheet(t *testing.T) {
	sheetXML := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` +
		`<row r="1"><c r="A1"><f>A2+1</f></c></row>` +
		`<row r="2"><c r="A2"><f>SUM(#REF!)</f></c><c r="B2"><v>1</v`
	wb, issues := buildFrom(t, writePackage(t, "broken.xlsx", sheetPackage(sheetXML)...))

	require.Len(t, issues, 1)
	var partial *PartialDecodeError
	require.True(t, errors.As(issues[0], &partial))
	assert.Equal(t, "Data", partial.Sheet)
	assert.Equal(t, "xl/worksheets/sheet1.xml", partial.Part)
	assert.Equal(t, "cells", partial.Component)

	sheet := wb.Sheets[0]
	assert.Contains(t, sheet.Cells, "A1")
	assert.Contains(t, sheet.Cells, "A2")
	assert.NotContains(t, sheet.Cells, "B2")
}

func TestBuildWorkbookBadSharedStringIndex(t *testing.T) {
	sheetXML := worksheet(`<row r="1"><c r="A1" t="s"><v>7</v></c><c r="B1"><v>1</v></c></row>`)
	wb, issues := buildFrom(t, writePackage(t, "sst.xlsx", sheetPackage(sheetXML)...))

	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Error(), "shared string index")
	assert.NotContains(t, wb.Sheets[0].Cells, "A1")
	assert.Contains(t, wb.Sheets[0].Cells, "B1")
}

func TestBuildWorkbookManifestFallbacks(t *testing.T) {
	workbook := `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>` +
		`<sheet name="First" sheetId="3" r:id="rId9"/>` +
		`<sheet name="Chart" sheetId="4" r:id="rId2"/>` +
		`<sheet name="Second" sheetId="7" r:id="rId3"/>` +
		`</sheets><definedNames><definedName name="Here" localSheetId="2">Second!$A$1</definedName></definedNames></workbook>`
	rels := `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chartsheet" Target="chartsheets/sheet1.xml"/>` +
		`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="/xl/worksheets/other.xml"/>` +
		`</Relationships>`
	path := writePackage(t, "fallbacks.xlsx",
		part{"_rels/.rels", rootRels},
		part{"xl/workbook.xml", workbook},
		part{"xl/_rels/workbook.xml.rels", rels},
		part{"xl/worksheets/sheet3.xml", worksheet(`<row r="1"><c r="A1"><v>3</v></c></row>`)},
		part{"xl/worksheets/other.xml", worksheet(`<row r="1"><c r="A1"><v>7</v></c></row>`)},
		part{"xl/chartsheets/sheet1.xml", `<chartsheet/>`},
	)

	wb, issues := buildFrom(t, path)
	assert.Empty(t, issues)
	assert.Equal(t, []string{"First", "Chart", "Second"}, wb.TabNames)
	assert.Equal(t, []string{"First", "Second"}, wb.SheetNames())
	assert.Equal(t, "xl/worksheets/sheet3.xml", wb.Sheets[0].Part, "resolved by sheetId")
	assert.Equal(t, "xl/worksheets/other.xml", wb.Sheets[1].Part, "resolved by relationship")
	require.Len(t, wb.DefinedNames, 1)
	assert.Equal(t, "Second", wb.DefinedNames[0].Scope)
}

func TestBuildWorkbookWithoutManifest(t *testing.T) {
	path := writePackage(t, "bare.xlsx",
		part{"xl/worksheets/sheet10.xml", worksheet(`<row r="1"><c r="A1"><v>10</v></c></row>`)},
		part{"xl/worksheets/sheet2.xml", worksheet(`<row r="1"><c r="A1"><v>2</v></c></row>`)},
	)
	wb, _ := buildFrom(t, path)
	assert.Empty(t, wb.Part)
	assert.Equal(t, []string{"Sheet2", "Sheet10"}, wb.SheetNames())

	empty := writePackage(t, "empty.xlsx", part{"docProps/app.xml", "<Properties/>"})
	a, err := OpenArchive(empty, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	_, _, err = BuildWorkbook(a, "empty.xlsx", zap.NewNop())
	var corrupt *CorruptArchiveError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, "no workbook part", corrupt.Reason)
}

func TestPartOwners(t *testing.T) {
	sheetRels := `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing" Target="../drawings/drawing1.xml"/>` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/table" Target="../tables/table1.xml"/>` +
		`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com" TargetMode="External"/>` +
		`</Relationships>`
	drawingRels := `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart" Target="../charts/chart1.xml"/>` +
		`</Relationships>`
	path := writePackage(t, "owners.xlsx", sheetPackage(worksheet(""),
		part{"xl/worksheets/_rels/sheet1.xml.rels", sheetRels},
		part{"xl/drawings/drawing1.xml", "<wsDr/>"},
		part{"xl/drawings/_rels/drawing1.xml.rels", drawingRels},
		part{"xl/charts/chart1.xml", "<chartSpace/>"},
		part{"xl/tables/table1.xml", "<table/>"},
	)...)

	wb, _ := buildFrom(t, path)
	assert.Equal(t, "Data", wb.OwnerOf("xl/charts/chart1.xml"))
	assert.Equal(t, "Data", wb.OwnerOf("xl/tables/table1.xml"))
	assert.Equal(t, "Data", wb.OwnerOf("xl/worksheets/sheet1.xml"))
	assert.Equal(t, "", wb.OwnerOf("xl/charts/chart2.xml"))
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"xl/workbook.xml", "worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/workbook.xml", "/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "../drawings/drawing1.xml", "xl/drawings/drawing1.xml"},
		{"", "xl/workbook.xml", "xl/workbook.xml"},
		{"xl/workbook.xml", `worksheets\sheet2.xml`, "xl/worksheets/sheet2.xml"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.source, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, expected %q", tt.source, tt.target, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input string
		want  models.CellRange
		ok    bool
	}{
		{"A1:D10", models.CellRange{R1: 1, C1: 1, R2: 10, C2: 4}, true},
		{"$B$2:$C$3", models.CellRange{R1: 2, C1: 2, R2: 3, C2: 3}, true},
		{"D10:A1", models.CellRange{R1: 1, C1: 1, R2: 10, C2: 4}, true},
		{"C7", models.CellRange{R1: 7, C1: 3, R2: 7, C2: 3}, true},
		{"'My Sheet'!A1:A2", models.CellRange{R1: 1, C1: 1, R2: 2, C2: 1}, true},
		{"#REF!", models.CellRange{}, false},
		{"A1:B2:C3", models.CellRange{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseRange(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRange(%q) = %v, %v; expected %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}

	assert.Len(t, parseSqref("A1:A3 C5 bogus"), 2)
}
