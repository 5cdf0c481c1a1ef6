// Package refcheck scans spreadsheet packages for broken-reference markers
// and reports them as a CI gate.
package refcheck

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Resolve.
const (
	EnvFile      = "EXCEL_FILE"
	EnvExport    = "EXPORT_SHEETS"
	EnvDebug     = "REFCHECK_DEBUG"
	EnvOutputDir = "REFCHECK_OUTPUT_DIR"
)

// DefaultOutputDir is where sheet exports are written.
const DefaultOutputDir = "exploded"

// Options configures a run.
type Options struct {
	// Path is the workbook to check.
	Path string `yaml:"file"`
	// Export writes one CSV per sheet after scanning.
	Export bool `yaml:"export"`
	// Debug enables debug logging.
	Debug bool `yaml:"debug"`
	// OutputDir is the export root.
	OutputDir string `yaml:"output_dir"`
}

// DefaultOptions returns default run options.
func DefaultOptions() Options {
	return Options{
		OutputDir: DefaultOutputDir,
	}
}

// BindFlags registers the run flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.Bool("export", false, "export each sheet to CSV under the output directory")
	fs.Bool("debug", false, "enable debug logging on stderr")
	fs.String("output-dir", DefaultOutputDir, "root directory for sheet exports")
	fs.String("config", "", "YAML config file (keys: file, export, debug, output_dir)")
}

// Resolve builds the run options. Flags and the positional argument win over
// the environment, which wins over the config file, which wins over defaults.
func Resolve(fs *pflag.FlagSet, args []string, lookup func(string) (string, bool)) (Options, error) {
	opts := DefaultOptions()

	if path, _ := fs.GetString("config"); path != "" {
		if err := loadConfigFile(path, &opts); err != nil {
			return opts, err
		}
	}

	if v, ok := lookupNonEmpty(lookup, EnvFile); ok {
		opts.Path = v
	}
	if v, ok := lookupNonEmpty(lookup, EnvExport); ok {
		opts.Export = parseBool(v)
	}
	if v, ok := lookupNonEmpty(lookup, EnvDebug); ok {
		opts.Debug = parseBool(v)
	}
	if v, ok := lookupNonEmpty(lookup, EnvOutputDir); ok {
		opts.OutputDir = v
	}

	if fs.Changed("export") {
		opts.Export, _ = fs.GetBool("export")
	}
	if fs.Changed("debug") {
		opts.Debug, _ = fs.GetBool("debug")
	}
	if fs.Changed("output-dir") {
		opts.OutputDir, _ = fs.GetString("output-dir")
	}
	if len(args) > 0 && args[0] != "" {
		opts.Path = args[0]
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	return opts, nil
}

func loadConfigFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func lookupNonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// parseBool accepts 1, true and yes in any case.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
