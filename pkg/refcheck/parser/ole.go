package parser

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
	"go.uber.org/zap"
)

// OLE2 Compound Document signature. Legacy .xls files and password protected
// packages both use this container.
var ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

func isOLE2(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(ole2Magic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, ole2Magic)
}

// describeOLE2 names what an OLE2 container most likely holds so the
// rejection reason is actionable.
func describeOLE2(path string, logger *zap.Logger) string {
	f, err := os.Open(path)
	if err != nil {
		return "OLE2 compound document"
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return "OLE2 compound document"
	}

	reason := "OLE2 compound document"
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch {
		case entry.Name == "EncryptedPackage":
			reason = "password protected package"
		case entry.Name == "Workbook" || entry.Name == "Book":
			if reason == "OLE2 compound document" {
				reason = "legacy binary workbook (.xls)"
			}
		case msoleps.IsMSOLEPS(entry.Initial) && strings.HasSuffix(entry.Name, "SummaryInformation"):
			logSummary(entry, logger)
		}
	}
	return reason
}

func logSummary(r io.Reader, logger *zap.Logger) {
	props, err := msoleps.NewFrom(r)
	if err != nil {
		logger.Debug("summary information unreadable", zap.Error(err))
		return
	}
	for _, p := range props.Property {
		logger.Debug("container property", zap.String("name", p.Name), zap.String("value", p.String()))
	}
}
