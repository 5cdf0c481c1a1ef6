// Package parser reads spreadsheet packages: container access, the workbook
// model, and the raw parts the fallback pass walks.
package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// SupportedExtensions lists the package-based spreadsheet extensions.
var SupportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// PartSource provides named-part access to a package.
type PartSource interface {
	// Open streams a part.
	Open(name string) (io.ReadCloser, error)
	// Has reports whether a part exists.
	Has(name string) bool
	// PartNames lists parts whose name starts with prefix, in natural order.
	PartNames(prefix string) []string
}

// Archive is an opened spreadsheet package.
type Archive struct {
	path     string
	zr       *zip.ReadCloser
	files    map[string]*zip.File
	salvaged map[string][]byte
	names    map[string]string // lower-cased name -> stored name
	// Issues records non-fatal container problems.
	Issues []error
}

// CheckPath verifies path names an existing file with a supported extension.
// It never opens the file.
func CheckPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return nil
}

// OpenArchive checks path and opens it as a zip container. When the central
// directory is unreadable, parts are recovered from local file headers; the
// archive is only rejected if nothing can be recovered.
func OpenArchive(path string, logger *zap.Logger) (*Archive, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}

	a := &Archive{path: path, names: make(map[string]string)}
	zr, err := zip.OpenReader(path)
	if err == nil {
		a.zr = zr
		a.files = make(map[string]*zip.File, len(zr.File))
		for _, f := range zr.File {
			if strings.HasSuffix(f.Name, "/") {
				continue
			}
			name := normalizePartName(f.Name)
			a.files[name] = f
			a.names[strings.ToLower(name)] = name
		}
		logger.Debug("opened package", zap.String("path", path), zap.Int("parts", len(a.files)))
		return a, nil
	}

	if isOLE2(path) {
		return nil, &CorruptArchiveError{Path: path, Reason: describeOLE2(path, logger), Err: err}
	}

	parts, salvageErr := salvageParts(path)
	if len(parts) == 0 {
		if salvageErr != nil {
			logger.Debug("salvage failed", zap.Error(salvageErr))
		}
		return nil, &CorruptArchiveError{Path: path, Reason: "not a readable zip container", Err: err}
	}
	a.salvaged = parts
	for name := range parts {
		a.names[strings.ToLower(name)] = name
	}
	a.Issues = append(a.Issues, NewPartialDecodeError(filepath.Base(path), "", "container", err))
	logger.Warn("central directory unreadable, recovered parts from local headers",
		zap.String("path", path), zap.Int("parts", len(parts)), zap.Error(err))
	return a, nil
}

// Path returns the file the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// Salvaged reports whether parts were recovered from a damaged container.
func (a *Archive) Salvaged() bool {
	return a.salvaged != nil
}

func (a *Archive) lookup(name string) (string, bool) {
	stored, ok := a.names[strings.ToLower(normalizePartName(name))]
	return stored, ok
}

// Has reports whether the part exists.
func (a *Archive) Has(name string) bool {
	_, ok := a.lookup(name)
	return ok
}

// Open streams the named part.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	stored, ok := a.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	if a.salvaged != nil {
		return io.NopCloser(bytes.NewReader(a.salvaged[stored])), nil
	}
	return a.files[stored].Open()
}

// ReadPart reads the named part fully.
func (a *Archive) ReadPart(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// PartNames lists parts whose name starts with prefix (case-insensitive),
// in natural order so sheet2 precedes sheet10.
func (a *Archive) PartNames(prefix string) []string {
	prefix = strings.ToLower(normalizePartName(prefix))
	var names []string
	for lower, stored := range a.names {
		if strings.HasPrefix(lower, prefix) {
			names = append(names, stored)
		}
	}
	sortNatural(names)
	return names
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	if a.zr != nil {
		return a.zr.Close()
	}
	return nil
}

func normalizePartName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(name, "/")
}

// sortNatural orders names comparing embedded digit runs numerically.
func sortNatural(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
}

func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := isDigit(a[0]), isDigit(b[0])
		switch {
		case da && db:
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			a, b = ra, rb
		case a[0] != b[0]:
			return a[0] < b[0]
		default:
			a, b = a[1:], b[1:]
		}
	}
	return len(a) < len(b)
}

func leadingDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
