package parser

import (
	"encoding/xml"
	"io"
	"strings"
)

// xlsxSI is a shared string item: plain text or rich text runs. Phonetic runs
// are not part of the displayed value and are skipped.
type xlsxSI struct {
	T string `xml:"t"`
	R []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (si xlsxSI) text() string {
	if len(si.R) == 0 {
		return si.T
	}
	var b strings.Builder
	b.WriteString(si.T)
	for _, r := range si.R {
		b.WriteString(r.T)
	}
	return b.String()
}

// parseSharedStrings decodes the shared string table. Items decoded before an
// error are kept so indexes below the damage still resolve.
func parseSharedStrings(r io.Reader) ([]string, error) {
	var table []string
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return table, err
		}
		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "si" {
			continue
		}
		var si xlsxSI
		if err := decoder.DecodeElement(&si, &se); err != nil {
			return table, err
		}
		table = append(table, si.text())
	}
}
