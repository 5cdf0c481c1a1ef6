package refcheck

import (
	"errors"
	"fmt"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/parser"
)

// ErrUsage indicates no input file was given.
var ErrUsage = errors.New("no Excel file specified")

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = parser.ErrFileNotFound

// ErrUnsupportedFormat indicates the input extension is not supported.
var ErrUnsupportedFormat = parser.ErrUnsupportedFormat

// CorruptArchiveError indicates the input could not be opened as a package.
type CorruptArchiveError = parser.CorruptArchiveError

// PartialDecodeError records a part that was only partly decoded.
type PartialDecodeError = parser.PartialDecodeError

// ValidationFailure is returned when the scan found at least one marker.
type ValidationFailure struct {
	Count int
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("found %d #REF! errors", e.Count)
}

// FailureKind names the kind of a run failure.
func FailureKind(err error) string {
	var corrupt *CorruptArchiveError
	var partial *PartialDecodeError
	var failure *ValidationFailure
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUsage):
		return "usage"
	case errors.Is(err, ErrFileNotFound):
		return "not found"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported format"
	case errors.As(err, &corrupt):
		return "corrupt archive"
	case errors.As(err, &partial):
		return "partial decode"
	case errors.As(err, &failure):
		return "validation failure"
	default:
		return "internal"
	}
}
