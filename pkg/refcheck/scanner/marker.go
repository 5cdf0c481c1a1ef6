// Package scanner finds the broken-reference marker in a workbook model and,
// as a fallback, in the raw package parts.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/xuri/efp"
)

// FormulaHasMarker reports whether a formula contains the marker outside of
// string literals. The formula is tokenized, so "#REF!" inside quotes does
// not count while Sheet1!#REF! and unterminated error tokens do.
func FormulaHasMarker(formula string) bool {
	if !strings.Contains(formula, models.RefErrorMarker) {
		return false
	}
	ps := efp.ExcelParser()
	for _, token := range ps.Parse(formula) {
		if token.TSubType == efp.TokenSubTypeText {
			continue
		}
		if token.TSubType == efp.TokenSubTypeError && token.TValue == models.RefErrorMarker {
			return true
		}
		if TextHasMarker(token.TValue) {
			return true
		}
	}
	return false
}

// TextHasMarker reports whether s contains the marker as a self-delimited
// word: "prefix #REF! suffix" matches, "A#REF!B" does not.
func TextHasMarker(s string) bool {
	for offset := 0; offset < len(s); {
		idx := strings.Index(s[offset:], models.RefErrorMarker)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(models.RefErrorMarker)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
