package refcheck

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// writeWorkbook saves a workbook named name built by fill into a temp dir.
func writeWorkbook(t *testing.T, name string, fill func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	fill(f)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// brokenRefWorkbook has a single broken formula in Sheet1!A1.
func brokenRefWorkbook(t *testing.T) string {
	return writeWorkbook(t, "has_broken_ref.xltm", func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "B1", 10))
		require.NoError(t, f.SetCellFormula("Sheet1", "A1", "SUM(#REF!)"))
	})
}

func cleanWorkbook(t *testing.T) string {
	return writeWorkbook(t, "no_errors.xlsx", func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "Name"))
		require.NoError(t, f.SetCellValue("Sheet1", "B1", 10))
		require.NoError(t, f.SetCellFormula("Sheet1", "C1", "B1*2"))
	})
}

// rewriteZip copies the package at src to a new file, replacing the named
// parts with the given bodies.
func rewriteZip(t *testing.T, src, name string, replace map[string]string) string {
	t.Helper()
	zr, err := zip.OpenReader(src)
	require.NoError(t, err)
	defer zr.Close()

	dst := filepath.Join(t.TempDir(), name)
	out, err := os.Create(dst)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for _, file := range zr.File {
		w, err := zw.Create(file.Name)
		require.NoError(t, err)
		if body, ok := replace[file.Name]; ok {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
			continue
		}
		r, err := file.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		r.Close()
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return dst
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// excelSheet is Sheet1 of a workbook saved by Excel after the range a
// formula pointed at was deleted: the formula keeps its cached error.
const excelSheet = `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
	`<dimension ref="A1:B1"/><sheetData><row r="1">` +
	`<c r="A1" t="e"><f>SUM(#REF!)</f><v>#REF!</v></c><c r="B1"><v>10</v></c>` +
	`</row></sheetData></worksheet>`

func excelSavedBrokenRef(t *testing.T) string {
	return rewriteZip(t, brokenRefWorkbook(t), "has_broken_ref.xltm", map[string]string{
		"xl/worksheets/sheet1.xml": excelSheet,
	})
}
