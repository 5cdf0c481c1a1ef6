package refcheck

import (
	"path/filepath"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/models"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/parser"
	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck/scanner"
	"go.uber.org/zap"
)

// Stage is the last pipeline stage a run reached.
type Stage int

const (
	StageIdle Stage = iota
	StageLoaded
	StageModeled
	StageScanned
	StageReported
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoaded:
		return "loaded"
	case StageModeled:
		return "modeled"
	case StageScanned:
		return "scanned"
	case StageReported:
		return "reported"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of checking one workbook.
type Result struct {
	// Path is the input file.
	Path string
	// BookName is the file name without directories.
	BookName string
	Stage    Stage
	// Err is the fatal error that stopped the run, if any.
	Err error
	// Workbook is the decoded model, nil when modeling failed.
	Workbook *models.Workbook
	// Findings are deduplicated and ordered for reporting.
	Findings []models.Finding
	// Issues are non-fatal decode problems.
	Issues []error
	// StructuredCount and FallbackCount are the raw hit counts of each pass
	// before deduplication.
	StructuredCount int
	FallbackCount   int
	// ExportDir is set when sheets were exported.
	ExportDir string
	// ExportErr is set when a requested export failed.
	ExportErr error
}

// Failure returns the error that decides the exit status: the fatal error,
// a ValidationFailure when markers were found, or nil.
func (r *Result) Failure() error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Findings) > 0 {
		return &ValidationFailure{Count: len(r.Findings)}
	}
	return nil
}

// Check loads, models, and scans the workbook named by opts.Path. It never
// exports; see ExportSheets.
func Check(opts Options, logger *zap.Logger) *Result {
	res := &Result{Path: opts.Path, BookName: filepath.Base(opts.Path)}
	fail := func(err error) *Result {
		res.Err = err
		res.Stage = StageFailed
		return res
	}
	if opts.Path == "" {
		res.BookName = ""
		return fail(ErrUsage)
	}

	archive, err := parser.OpenArchive(opts.Path, logger)
	if err != nil {
		return fail(err)
	}
	defer archive.Close()
	res.Issues = append(res.Issues, archive.Issues...)
	res.Stage = StageLoaded

	wb, issues, err := parser.BuildWorkbook(archive, res.BookName, logger)
	res.Issues = append(res.Issues, issues...)
	if err != nil {
		return fail(err)
	}
	res.Workbook = wb
	res.Stage = StageModeled
	logger.Debug("workbook modeled",
		zap.String("book", res.BookName),
		zap.Strings("sheets", wb.SheetNames()),
		zap.Int("defined_names", len(wb.DefinedNames)),
		zap.Bool("salvaged", archive.Salvaged()))

	set := models.NewFindingSet()
	for f := range scanner.Scan(wb) {
		res.StructuredCount++
		set.Add(f)
	}
	fallback := scanner.NewFallback(archive, wb, logger)
	for f, err := range fallback.Scan() {
		if err != nil {
			res.Issues = append(res.Issues, err)
			continue
		}
		res.FallbackCount++
		set.Add(f)
	}
	res.Findings = set.Sorted(wb.SheetNames())
	res.Stage = StageScanned
	logger.Debug("scan complete",
		zap.Int("structured", res.StructuredCount),
		zap.Int("fallback", res.FallbackCount),
		zap.Int("findings", len(res.Findings)),
		zap.Int("issues", len(res.Issues)))
	return res
}
