// Package main provides the CLI entry point for refcheck.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Johnson-Gage-Inspection-Inc/ci-scripts/pkg/refcheck"
	"github.com/spf13/cobra"
)

// ExitError carries a non-zero exit status out of RunE.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(refcheck.ExitFailed)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "refcheck [workbook.xlsx]",
		Short: "Fail the build when a workbook contains #REF! errors",
		Long: `refcheck scans an Excel workbook (.xlsx, .xlsm, .xltx, .xltm) for #REF!
errors in cell formulas, cached values, array formulas, data validations and
defined names. It exits 1 when any are found.

The workbook may also be given through the EXCEL_FILE environment variable.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
	refcheck.BindFlags(rootCmd.Flags())
	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	opts, err := refcheck.Resolve(cmd.Flags(), args, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return &ExitError{Code: refcheck.ExitFailed}
	}

	logger, err := refcheck.NewLogger(opts.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	res := refcheck.Check(opts, logger)
	if res.Err == nil && opts.Export {
		res.ExportDir, res.ExportErr = refcheck.ExportSheets(opts.Path, opts.OutputDir, res.Workbook, logger)
		if res.ExportErr != nil {
			res.ExportDir = ""
		}
	}

	if code := refcheck.NewReporter(out).Report(res); code != refcheck.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}
