package commands

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edicraft/edipipe/config"
	"github.com/edicraft/edipipe/internal/fileutil"
	"github.com/edicraft/edipipe/pipeline"
)

// BatchFlags holds the flags for the batch command.
type BatchFlags struct {
	Policy      string
	Strictness  string
	Format      string
	Streaming   bool
	SchemaDir   string
	SchemaName  string
	SchemaVer   string
	Mapping     string
	ConfigFile  string
	OutputDir   string
	MaxRetries  int
	MaxDuration time.Duration
	Glob        string
}

// SetupBatchFlags creates and configures a FlagSet for the batch command.
func SetupBatchFlags() (*flag.FlagSet, *BatchFlags) {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	flags := &BatchFlags{}

	fs.StringVar(&flags.Policy, "policy", "FailAll", "acceptance policy: FailAll, AcceptAll, or Quarantine")
	fs.StringVar(&flags.Strictness, "strictness", "Moderate", "validation strictness: Strict, Moderate, or Lenient")
	fs.StringVar(&flags.Format, "format", "Edifact", "output format: Edifact, Json, Csv, or Xml")
	fs.BoolVar(&flags.Streaming, "streaming", false, "process each file's messages concurrently instead of sequentially")
	fs.StringVar(&flags.SchemaDir, "schema-dir", "", "directory to search for schema files")
	fs.StringVar(&flags.SchemaName, "schema-name", "", "name of the schema to validate against")
	fs.StringVar(&flags.SchemaVer, "schema-version", "", "version of the schema to validate against")
	fs.StringVar(&flags.Mapping, "mapping", "", "path to a mapping DSL file to apply before rendering")
	fs.StringVar(&flags.ConfigFile, "config", "", "path to a YAML/JSON run configuration, overriding the flags above")
	fs.StringVar(&flags.OutputDir, "output-dir", "", "directory to write each file's rendered output into")
	fs.IntVar(&flags.MaxRetries, "max-retries", 2, "retry budget per failing file")
	fs.DurationVar(&flags.MaxDuration, "max-duration", 30*time.Second, "soft deadline for the batch's retry loop")
	fs.StringVar(&flags.Glob, "glob", "*", "glob pattern (relative to <dir>) selecting which files to process")

	fs.Usage = func() {
		Writef(fs.Output(), "Usage: edipipe batch [flags] <dir>\n\n")
		Writef(fs.Output(), "Run every matching file in <dir> through the pipeline as one batch.\n\n")
		Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		Writef(fs.Output(), "\nExit Codes:\n")
		Writef(fs.Output(), "  0    Every file succeeded (or AcceptAll/Quarantine tolerated failures)\n")
		Writef(fs.Output(), "  1    Batch stopped on a failing file under the FailAll policy\n")
	}

	return fs, flags
}

// HandleBatch executes the batch command.
func HandleBatch(args []string) (int, error) {
	fs, flags := SetupBatchFlags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1, fmt.Errorf("batch command requires exactly one directory path")
	}
	dir := fs.Arg(0)

	matches, err := filepath.Glob(filepath.Join(dir, flags.Glob))
	if err != nil {
		return 1, fmt.Errorf("commands: invalid glob %q: %w", flags.Glob, err)
	}
	if len(matches) == 0 {
		return 1, fmt.Errorf("no files in %s matched %q", dir, flags.Glob)
	}

	p, err := buildPipelineWithBatchTuning(flags)
	if err != nil {
		return 1, err
	}

	result, err := p.ProcessBatch(matches)
	if err != nil {
		return 1, fmt.Errorf("batch processing %s: %w", dir, err)
	}

	for i, fr := range result.FileResults {
		if flags.OutputDir == "" {
			continue
		}
		for j, out := range fr.Outputs {
			outPath := filepath.Join(flags.OutputDir, fmt.Sprintf("%s.%d.out", filepath.Base(matches[i]), j))
			if err := os.WriteFile(outPath, out, fileutil.OwnerReadWrite); err != nil {
				return 1, fmt.Errorf("commands: writing batch output %s: %w", outPath, err)
			}
		}
	}

	Writef(os.Stderr, "batch: %d/%d files succeeded, %d quarantined\n", result.SuccessfulFiles, result.TotalFiles, result.QuarantinedFiles)

	if !result.BatchSuccess {
		return 1, nil
	}
	return 0, nil
}

func buildPipelineWithBatchTuning(flags *BatchFlags) (*pipeline.Pipeline, error) {
	if flags.ConfigFile != "" {
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		opts, err := cfg.PipelineOptions()
		if err != nil {
			return nil, err
		}
		return pipeline.NewWithOptions(opts...)
	}

	cfg := &config.RunConfig{
		Policy:           flags.Policy,
		Strictness:       flags.Strictness,
		OutputFormat:     flags.Format,
		Streaming:        flags.Streaming,
		SchemaDir:        flags.SchemaDir,
		SchemaName:       flags.SchemaName,
		SchemaVer:        flags.SchemaVer,
		MappingFile:      flags.Mapping,
		BatchMaxRetries:  flags.MaxRetries,
		BatchMaxDuration: flags.MaxDuration.String(),
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return pipeline.NewWithOptions(opts...)
}
