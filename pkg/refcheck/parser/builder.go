package parser

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"go.uber.org/zap"
)

var worksheetPartPattern = regexp.MustCompile(`(?i)^xl/worksheets/(sheet(\d*))\.xml$`)

// BuildWorkbook decodes the workbook model from a package. Damaged parts are
// reported as issues and decoding continues; the error is non-nil only when
// the package holds no workbook at all.
func BuildWorkbook(src PartSource, bookName string, logger *zap.Logger) (*models.Workbook, []error, error) {
	wb := &models.Workbook{BookName: bookName}
	var issues []error

	wb.Part = findWorkbookPart(src)
	var m *manifest
	if wb.Part != "" {
		var err error
		m, err = readManifest(src, wb.Part)
		if err != nil {
			issues = append(issues, NewPartialDecodeError(wb.Part, "", "manifest", err))
			logger.Warn("workbook manifest partially decoded", zap.String("part", wb.Part), zap.Error(err))
		}
	}

	var wbRels []relationship
	if wb.Part != "" {
		var err error
		wbRels, err = readRels(src, wb.Part)
		if err != nil {
			issues = append(issues, NewPartialDecodeError(relsPathFor(wb.Part), "", "manifest", err))
		}
	}

	if m != nil && len(m.sheets) > 0 {
		issues = append(issues, addManifestSheets(src, wb, m, wbRels)...)
	} else {
		addConventionalSheets(src, wb)
	}
	if len(wb.Sheets) == 0 && wb.Part == "" {
		return nil, issues, &CorruptArchiveError{Path: bookName, Reason: "no workbook part"}
	}

	sstPart := sharedStringsPart(src, wbRels)
	if sstPart != "" {
		rc, err := src.Open(sstPart)
		if err == nil {
			wb.SharedStrings, err = parseSharedStrings(rc)
			rc.Close()
		}
		if err != nil {
			issues = append(issues, NewPartialDecodeError(sstPart, "", "shared strings", err))
			logger.Warn("shared strings partially decoded", zap.String("part", sstPart), zap.Error(err))
		}
	}

	for _, sheet := range wb.Sheets {
		if sheet.Part == "" {
			continue
		}
		rc, err := src.Open(sheet.Part)
		if err != nil {
			issues = append(issues, NewPartialDecodeError(sheet.Part, sheet.Name, "cells", err))
			continue
		}
		sheetIssues := parseWorksheet(rc, sheet, wb.SharedStrings)
		rc.Close()
		for _, issue := range sheetIssues {
			logger.Warn("worksheet partially decoded", zap.String("sheet", sheet.Name), zap.Error(issue))
		}
		issues = append(issues, sheetIssues...)
		logger.Debug("decoded worksheet",
			zap.String("sheet", sheet.Name),
			zap.String("part", sheet.Part),
			zap.Int("cells", len(sheet.Cells)),
			zap.Int("validations", len(sheet.Validations)))
	}

	if m != nil {
		wb.DefinedNames = m.definedNames(wb)
	}
	wb.Owners = partOwners(src, wb)
	return wb, issues, nil
}

func readManifest(src PartSource, part string) (*manifest, error) {
	rc, err := src.Open(part)
	if err != nil {
		return &manifest{}, err
	}
	defer rc.Close()
	return parseManifest(rc)
}

// addManifestSheets resolves each manifest sheet to its part: by relationship
// first, then by sheetId, then by position. Chartsheets and dialog sheets
// keep their tab slot but carry no cells.
func addManifestSheets(src PartSource, wb *models.Workbook, m *manifest, rels []relationship) []error {
	byID := make(map[string]relationship, len(rels))
	for _, rel := range rels {
		byID[rel.ID] = rel
	}

	var issues []error
	for i, entry := range m.sheets {
		wb.TabNames = append(wb.TabNames, entry.name)

		rel, ok := byID[entry.rID]
		if ok && !rel.is(relWorksheet) {
			continue
		}
		part := ""
		if ok && src.Has(rel.Target) {
			part = rel.Target
		}
		if part == "" && entry.sheetID != "" && src.Has("xl/worksheets/sheet"+entry.sheetID+".xml") {
			part = "xl/worksheets/sheet" + entry.sheetID + ".xml"
		}
		if byPosition := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1); part == "" && src.Has(byPosition) {
			part = byPosition
		}

		sheet := models.NewSheet(entry.name, len(wb.Sheets), part)
		wb.Sheets = append(wb.Sheets, sheet)
		if part == "" {
			issues = append(issues, NewPartialDecodeError(wb.Part, entry.name, "manifest",
				fmt.Errorf("no worksheet part for sheet %q", entry.name)))
		}
	}
	return issues
}

// addConventionalSheets enumerates xl/worksheets/sheetN.xml when the manifest
// is missing or lists no sheets.
func addConventionalSheets(src PartSource, wb *models.Workbook) {
	for _, part := range src.PartNames("xl/worksheets/") {
		match := worksheetPartPattern.FindStringSubmatch(part)
		if match == nil {
			continue
		}
		name := "Sheet" + match[2]
		if match[2] == "" {
			name = strings.TrimSuffix(path.Base(part), ".xml")
		}
		wb.TabNames = append(wb.TabNames, name)
		wb.Sheets = append(wb.Sheets, models.NewSheet(name, len(wb.Sheets), part))
	}
}

func sharedStringsPart(src PartSource, rels []relationship) string {
	for _, rel := range rels {
		if rel.is(relSharedStrings) && !rel.External && src.Has(rel.Target) {
			return rel.Target
		}
	}
	if src.Has("xl/sharedStrings.xml") {
		return "xl/sharedStrings.xml"
	}
	return ""
}
