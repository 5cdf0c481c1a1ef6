package parser

import (
	"encoding/xml"
	"io"
	"path"
	"strings"
)

// Relationship type suffixes. Transitional and strict schemas differ only in
// the namespace prefix.
const (
	relOfficeDocument = "/officeDocument"
	relWorksheet      = "/worksheet"
	relSharedStrings  = "/sharedStrings"
	relDrawing        = "/drawing"
	relChart          = "/chart"
	relTable          = "/table"
)

// relationship is one entry of a .rels part.
type relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

func (r relationship) is(suffix string) bool {
	return strings.HasSuffix(r.Type, suffix)
}

// relsPathFor returns the relationships part of a package part, e.g.
// xl/workbook.xml -> xl/_rels/workbook.xml.rels.
func relsPathFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target against the part that owns it.
func resolveTarget(source, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") || strings.HasPrefix(target, "xl/") {
		return strings.TrimPrefix(path.Clean("/"+target), "/")
	}
	return strings.TrimPrefix(path.Clean("/"+path.Join(path.Dir(source), target)), "/")
}

// readRels loads the relationships owned by part. A missing .rels part yields
// no relationships.
func readRels(src PartSource, part string) ([]relationship, error) {
	relsPath := relsPathFor(part)
	if part == "" {
		relsPath = "_rels/.rels"
	}
	if !src.Has(relsPath) {
		return nil, nil
	}
	rc, err := src.Open(relsPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseRels(rc, part)
}

func parseRels(r io.Reader, source string) ([]relationship, error) {
	var rels []relationship
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return rels, nil
		}
		if err != nil {
			return rels, err
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var rel relationship
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "Id":
				rel.ID = attr.Value
			case "Type":
				rel.Type = attr.Value
			case "Target":
				rel.Target = attr.Value
			case "TargetMode":
				rel.External = strings.EqualFold(attr.Value, "External")
			}
		}
		if !rel.External && rel.Target != "" {
			rel.Target = resolveTarget(source, rel.Target)
		}
		rels = append(rels, rel)
	}
}

// readElementText returns the concatenated character data of the element
// whose start tag was just consumed.
func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text.String(), nil
}

func attrValue(se xml.StartElement, local string) (string, bool) {
	for _, attr := range se.Attr {
		if attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}
