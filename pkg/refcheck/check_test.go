package refcheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckBrokenReference(t *testing.T) {
	res := Check(Options{Path: brokenRefWorkbook(t)}, testLogger())

	require.NoError(t, res.Err)
	assert.Equal(t, StageScanned, res.Stage)
	assert.Equal(t, "has_broken_ref.xltm", res.BookName)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, models.CellLocation("Sheet1", "A1"), res.Findings[0].Location)
	assert.Equal(t, models.ContextCellFormula, res.Findings[0].Kind)
	assert.Equal(t, "=SUM(#REF!)", res.Findings[0].Snippet)
	assert.Equal(t, 1, res.StructuredCount)
	assert.Equal(t, 1, res.FallbackCount)
	assert.Empty(t, res.Issues)

	var failure *ValidationFailure
	require.ErrorAs(t, res.Failure(), &failure)
	assert.Equal(t, 1, failure.Count)
}

func TestCheckBrokenReferenceWithCachedError(t *testing.T) {
	res := Check(Options{Path: excelSavedBrokenRef(t)}, testLogger())

	require.NoError(t, res.Err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, models.CellLocation("Sheet1", "A1"), res.Findings[0].Location)
	assert.Equal(t, models.ContextCellFormula, res.Findings[0].Kind)
	assert.Equal(t, 1, res.StructuredCount)

	out, code := report(res)
	assert.Equal(t, ExitFailed, code)
	assert.Contains(t, out, "Found 1 #REF! errors:")
}

func TestCheckClean(t *testing.T) {
	res := Check(Options{Path: cleanWorkbook(t)}, testLogger())

	require.NoError(t, res.Err)
	assert.Empty(t, res.Findings)
	assert.Zero(t, res.FallbackCount)
	assert.NoError(t, res.Failure())
	require.NotNil(t, res.Workbook)
	assert.Equal(t, []string{"Sheet1"}, res.Workbook.SheetNames())
}

func TestCheckFatal(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, "legacy.xls")
	require.NoError(t, os.WriteFile(legacy, []byte("not a workbook"), 0o644))
	garbage := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(garbage, []byte("this is plain text, not a zip container"), 0o644))
	folder := filepath.Join(dir, "folder.xlsx")
	require.NoError(t, os.Mkdir(folder, 0o755))

	tests := []struct {
		name string
		path string
		kind string
	}{
		{"usage", "", "usage"},
		{"missing", filepath.Join(dir, "missing.xlsx"), "not found"},
		{"directory", folder, "not found"},
		{"unsupported", legacy, "unsupported format"},
		{"corrupt", garbage, "corrupt archive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Check(Options{Path: tt.path}, testLogger())
			require.Error(t, res.Err)
			assert.Equal(t, StageFailed, res.Stage)
			assert.Equal(t, tt.kind, FailureKind(res.Failure()))
			assert.Empty(t, res.Findings)
		})
	}
}

func TestCheckCorruptReason(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.xlsm")
	require.NoError(t, os.WriteFile(garbage, []byte("PK but nothing else"), 0o644))

	res := Check(Options{Path: garbage}, testLogger())
	var corrupt *CorruptArchiveError
	require.ErrorAs(t, res.Err, &corrupt)
	assert.Equal(t, "not a readable zip container", corrupt.Reason)
}

func TestCheckRepeatable(t *testing.T) {
	path := brokenRefWorkbook(t)
	first := Check(Options{Path: path}, testLogger())
	second := Check(Options{Path: path}, testLogger())
	if diff := cmp.Diff(first.Findings, second.Findings); diff != "" {
		t.Errorf("findings differ between runs (-first +second):\n%s", diff)
	}
}

func TestCheckSalvagedContainer(t *testing.T) {
	data, err := os.ReadFile(brokenRefWorkbook(t))
	require.NoError(t, err)
	damaged := filepath.Join(t.TempDir(), "damaged.xlsx")
	require.NoError(t, os.WriteFile(damaged, data[:len(data)-22], 0o644))

	res := Check(Options{Path: damaged}, testLogger())
	require.NoError(t, res.Err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, models.CellLocation("Sheet1", "A1"), res.Findings[0].Location)
	require.NotEmpty(t, res.Issues)
	var partial *PartialDecodeError
	assert.True(t, errors.As(res.Issues[0], &partial))
	assert.Equal(t, "container", partial.Component)
}

func TestCheckMalformedPart(t *testing.T) {
	sheet := `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>` +
		`<row r="1"><c r="A1"><f>SUM(#REF!)</f></c></row>` +
		`<row r="2"><c r="A2"><v>1</v></c><oops #REF! attr</row></sheetData></worksheet>`
	path := rewriteZip(t, cleanWorkbook(t), "malformed.xlsx", map[string]string{
		"xl/worksheets/sheet1.xml": sheet,
	})

	res := Check(Options{Path: path}, testLogger())
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.Issues)

	var cell, part bool
	for _, f := range res.Findings {
		switch {
		case f.Location == models.CellLocation("Sheet1", "A1") && f.Kind == models.ContextCellFormula:
			cell = true
		case f.Location.Part == "xl/worksheets/sheet1.xml" && f.Kind == models.ContextRawFallback:
			part = true
		}
	}
	assert.True(t, cell, "cell formula finding")
	assert.True(t, part, "part-level fallback finding")
	assert.Equal(t, "partial decode", FailureKind(res.Issues[0]))
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUsage, "usage"},
		{fmt.Errorf("%w: x.xlsx", ErrFileNotFound), "not found"},
		{fmt.Errorf("%w: .csv", ErrUnsupportedFormat), "unsupported format"},
		{&CorruptArchiveError{Path: "x", Reason: "r"}, "corrupt archive"},
		{&PartialDecodeError{Part: "p", Component: "cells", Err: errors.New("bad")}, "partial decode"},
		{&ValidationFailure{Count: 2}, "validation failure"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKind(tt.err), "%v", tt.err)
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "idle", StageIdle.String())
	assert.Equal(t, "reported", StageReported.String())
	assert.Equal(t, "unknown", Stage(42).String())
}
