package refcheck

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
)

// Exit statuses of a run.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// Reporter renders a Result for humans and maps it to an exit status.
type Reporter struct {
	out io.Writer
}

// NewReporter returns a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report writes the outcome of res and returns the exit status.
func (r *Reporter) Report(res *Result) int {
	if res.Err != nil {
		r.reportFatal(res)
		res.Stage = StageFailed
		return ExitFailed
	}

	r.printf("Checking %s for %s errors...\n", res.BookName, models.RefErrorMarker)
	if n := len(res.Issues); n > 0 {
		r.printf("Warning: %d part(s) could not be fully decoded; results may be incomplete.\n", n)
	}

	if len(res.Findings) > 0 {
		r.printf("Found %d %s errors:\n", len(res.Findings), models.RefErrorMarker)
		for _, f := range res.Findings {
			r.printf("  - %s [%s]: %s\n", f.Location, f.Kind, f.Snippet)
		}
	} else {
		r.printf("No %s errors found.\n", models.RefErrorMarker)
	}

	switch {
	case res.ExportErr != nil:
		r.printf("Warning: Failed to export sheets: %v\n", res.ExportErr)
	case res.ExportDir != "":
		r.printf("Sheets exported to: %s\n", filepath.ToSlash(res.ExportDir))
	}

	res.Stage = StageReported
	if len(res.Findings) > 0 {
		r.printf("Please fix broken references before merging.\n")
		return ExitFailed
	}
	r.printf("Excel validation completed successfully.\n")
	return ExitOK
}

func (r *Reporter) reportFatal(res *Result) {
	var corrupt *CorruptArchiveError
	switch {
	case errors.Is(res.Err, ErrUsage):
		r.printf("Error: No Excel file specified. Set %s environment variable or pass as argument.\n", EnvFile)
	case errors.Is(res.Err, ErrFileNotFound):
		r.printf("Error: File not found: %s\n", res.Path)
	case errors.Is(res.Err, ErrUnsupportedFormat):
		ext := strings.ToLower(filepath.Ext(res.Path))
		if ext == "" {
			ext = "(none)"
		}
		r.printf("Error: Unsupported file type: %s\n", ext)
	case errors.As(res.Err, &corrupt):
		r.printf("Error: %s is not a valid Excel file: %s\n", res.BookName, corrupt.Reason)
	default:
		r.printf("Error: %v\n", res.Err)
	}
}

func (r *Reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
