package parser

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input path does not resolve to a file.
var ErrFileNotFound = errors.New("file not found")

// ErrUnsupportedFormat indicates the input extension is not a supported spreadsheet package.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// ErrPartNotFound indicates a named part is absent from the package.
var ErrPartNotFound = errors.New("part not found")

// CorruptArchiveError indicates the container could not be opened and nothing
// could be recovered from it.
type CorruptArchiveError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt archive %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt archive %s: %s", e.Path, e.Reason)
}

func (e *CorruptArchiveError) Unwrap() error {
	return e.Err
}

// PartialDecodeError records a part (or sub-structure of a part) that could
// not be fully decoded. It never aborts a run.
type PartialDecodeError struct {
	Part      string
	Sheet     string
	Component string // "container", "manifest", "shared strings", "cells", "validations", "fallback"
	Err       error
}

func (e *PartialDecodeError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("partial decode of %s (sheet %q, %s): %v", e.Part, e.Sheet, e.Component, e.Err)
	}
	return fmt.Sprintf("partial decode of %s (%s): %v", e.Part, e.Component, e.Err)
}

func (e *PartialDecodeError) Unwrap() error {
	return e.Err
}

// NewPartialDecodeError creates a new PartialDecodeError.
func NewPartialDecodeError(part, sheet, component string, err error) *PartialDecodeError {
	return &PartialDecodeError{
		Part:      part,
		Sheet:     sheet,
		Component: component,
		Err:       err,
	}
}
