package scanner

import (
	"iter"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
)

// Scan walks every structured place a reference can live: cell formulas,
// cached and text cell values, array formula regions, data validation
// formulas, and defined names. The sequence is lazy; calling Scan again on
// the same workbook yields the same findings in the same order.
func Scan(wb *models.Workbook) iter.Seq[models.Finding] {
	return func(yield func(models.Finding) bool) {
		for _, sheet := range wb.Sheets {
			if !scanSheet(sheet, yield) {
				return
			}
		}
		for _, name := range wb.DefinedNames {
			if FormulaHasMarker(name.Expression) {
				f := models.Finding{
					Location: models.NameLocation(name.Name, name.Scope),
					Kind:     models.ContextDefinedName,
					Snippet:  name.Expression,
				}
				if !yield(f) {
					return
				}
			}
		}
	}
}

func scanSheet(sheet *models.Sheet, yield func(models.Finding) bool) bool {
	var brokenArrays []models.CellRange
	for _, af := range sheet.ArrayFormulas {
		if FormulaHasMarker(af.Formula) {
			brokenArrays = append(brokenArrays, af.Range)
		}
	}

	for _, cell := range sheet.SortedCells() {
		for _, f := range cellFindings(sheet, cell, brokenArrays) {
			if !yield(f) {
				return false
			}
		}
	}

	// An array region is one finding at its anchor, however many cells it spans.
	for _, af := range sheet.ArrayFormulas {
		if FormulaHasMarker(af.Formula) {
			f := models.Finding{
				Location: models.CellLocation(sheet.Name, af.Anchor),
				Kind:     models.ContextArrayFormula,
				Snippet:  "{=" + af.Formula + "}",
			}
			if !yield(f) {
				return false
			}
		}
	}

	for _, dv := range sheet.Validations {
		for _, formula := range []string{dv.Formula1, dv.Formula2} {
			if !FormulaHasMarker(formula) {
				continue
			}
			f := models.Finding{
				Location: models.ValidationLocation(sheet.Name, dv.Sqref),
				Kind:     models.ContextDataValidation,
				Snippet:  formula,
			}
			if !yield(f) {
				return false
			}
			break
		}
	}
	return true
}

// cellFindings reports at most one finding per cell. A cached error is only
// reported when the cell's own formula, or an array region covering it, did
// not already account for it.
func cellFindings(sheet *models.Sheet, cell *models.Cell, brokenArrays []models.CellRange) []models.Finding {
	loc := models.CellLocation(sheet.Name, cell.Ref)

	if formula, ok := cell.Formula(); ok && !cell.ArrayAnchor {
		if formula == "" && cell.SharedIndex != nil {
			formula = sheet.SharedFormulas[*cell.SharedIndex].Formula
		}
		if FormulaHasMarker(formula) {
			return []models.Finding{{
				Location: loc,
				Kind:     models.ContextCellFormula,
				Snippet:  "=" + formula,
			}}
		}
	}
	for _, rng := range brokenArrays {
		if rng.Contains(cell.Col, cell.Row) {
			return nil
		}
	}

	value := cell.Value
	if cell.Cached != nil {
		value = *cell.Cached
	}
	if value.IsError(models.RefErrorMarker) ||
		(value.Kind == models.KindText && cell.Cached == nil && TextHasMarker(value.Text)) {
		return []models.Finding{{
			Location: loc,
			Kind:     models.ContextCachedError,
			Snippet:  value.Text,
		}}
	}
	return nil
}
