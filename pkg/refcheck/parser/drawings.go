package parser

import (
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
)

// partOwners maps chart and table parts to the sheet that hosts them, via
// sheet -> drawing -> chart and sheet -> table relationships.
func partOwners(src PartSource, wb *models.Workbook) map[string]string {
	owners := make(map[string]string)
	for _, sheet := range wb.Sheets {
		if sheet.Part == "" {
			continue
		}
		sheetRels, err := readRels(src, sheet.Part)
		if err != nil {
			continue
		}
		for _, rel := range sheetRels {
			if rel.External {
				continue
			}
			switch {
			case rel.is(relTable):
				owners[strings.ToLower(rel.Target)] = sheet.Name
			case rel.is(relDrawing):
				for _, chart := range drawingCharts(src, rel.Target) {
					owners[strings.ToLower(chart)] = sheet.Name
				}
			}
		}
	}
	return owners
}

// drawingCharts lists the chart parts a drawing references.
func drawingCharts(src PartSource, drawingPath string) []string {
	rels, err := readRels(src, drawingPath)
	if err != nil {
		return nil
	}
	var charts []string
	for _, rel := range rels {
		if rel.is(relChart) && !rel.External {
			charts = append(charts, rel.Target)
		}
	}
	return charts
}
