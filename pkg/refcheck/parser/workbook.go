package parser

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
)

// sheetEntry is a <sheet> element of the workbook manifest.
type sheetEntry struct {
	name    string
	sheetID string
	rID     string
}

// nameEntry is a <definedName> element; scope indexes the sheet entries.
type nameEntry struct {
	name   string
	scope  int
	hidden bool
	text   string
}

// manifest is what the scan needs from the workbook part.
type manifest struct {
	sheets []sheetEntry
	names  []nameEntry
}

// findWorkbookPart locates the workbook manifest through the package
// relationships, falling back to the conventional location.
func findWorkbookPart(src PartSource) string {
	rels, _ := readRels(src, "")
	for _, rel := range rels {
		if rel.is(relOfficeDocument) && !rel.External && src.Has(rel.Target) {
			return rel.Target
		}
	}
	if src.Has("xl/workbook.xml") {
		return "xl/workbook.xml"
	}
	return ""
}

// parseManifest reads sheets and defined names. Entries decoded before an
// error are returned along with it.
func parseManifest(r io.Reader) (*manifest, error) {
	m := &manifest{}
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return m, err
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "sheet":
			var entry sheetEntry
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					entry.name = attr.Value
				case "sheetId":
					entry.sheetID = attr.Value
				case "id":
					entry.rID = attr.Value
				}
			}
			m.sheets = append(m.sheets, entry)
		case "definedName":
			entry := nameEntry{scope: -1}
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					entry.name = attr.Value
				case "localSheetId":
					if n, err := strconv.Atoi(attr.Value); err == nil {
						entry.scope = n
					}
				case "hidden":
					entry.hidden = attr.Value == "1" || strings.EqualFold(attr.Value, "true")
				}
			}
			text, err := readElementText(decoder)
			entry.text = text
			m.names = append(m.names, entry)
			if err != nil {
				return m, err
			}
		}
	}
}

// definedNames resolves name scopes against the tab list.
func (m *manifest) definedNames(wb *models.Workbook) []models.DefinedName {
	names := make([]models.DefinedName, 0, len(m.names))
	for _, n := range m.names {
		names = append(names, models.DefinedName{
			Name:       n.name,
			Scope:      wb.ScopeName(n.scope),
			Expression: n.text,
			Hidden:     n.hidden,
		})
	}
	return names
}
