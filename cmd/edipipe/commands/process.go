package commands

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/edicraft/edipipe/config"
	"github.com/edicraft/edipipe/pipeline"
)

// ProcessFlags holds the flags for the process command.
type ProcessFlags struct {
	Policy     string
	Strictness string
	Format     string
	Streaming  bool
	SchemaDir  string
	SchemaName string
	SchemaVer  string
	Mapping    string
	ConfigFile string
	Output     string
}

// SetupProcessFlags creates and configures a FlagSet for the process command.
func SetupProcessFlags() (*flag.FlagSet, *ProcessFlags) {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	flags := &ProcessFlags{}

	fs.StringVar(&flags.Policy, "policy", "FailAll", "acceptance policy: FailAll, AcceptAll, or Quarantine")
	fs.StringVar(&flags.Strictness, "strictness", "Moderate", "validation strictness: Strict, Moderate, or Lenient")
	fs.StringVar(&flags.Format, "format", "Edifact", "output format: Edifact, Json, Csv, or Xml")
	fs.BoolVar(&flags.Streaming, "streaming", false, "process messages concurrently instead of sequentially")
	fs.StringVar(&flags.SchemaDir, "schema-dir", "", "directory to search for schema files")
	fs.StringVar(&flags.SchemaName, "schema-name", "", "name of the schema to validate against")
	fs.StringVar(&flags.SchemaVer, "schema-version", "", "version of the schema to validate against")
	fs.StringVar(&flags.Mapping, "mapping", "", "path to a mapping DSL file to apply before rendering")
	fs.StringVar(&flags.ConfigFile, "config", "", "path to a YAML/JSON run configuration, overriding the flags above")
	fs.StringVar(&flags.Output, "o", "", "write the rendered output to this path instead of stdout")

	fs.Usage = func() {
		Writef(fs.Output(), "Usage: edipipe process [flags] <file>\n\n")
		Writef(fs.Output(), "Run a single EDIFACT or CSV file through the pipeline.\n\n")
		Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		Writef(fs.Output(), "\nExit Codes:\n")
		Writef(fs.Output(), "  0    Processing succeeded\n")
		Writef(fs.Output(), "  1    Processing failed under the FailAll policy\n")
	}

	return fs, flags
}

func buildPipeline(configFile, policy, strictness, format string, streaming bool, schemaDir, schemaName, schemaVer, mappingFile string) (*pipeline.Pipeline, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
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
		Policy:       policy,
		Strictness:   strictness,
		OutputFormat: format,
		Streaming:    streaming,
		SchemaDir:    schemaDir,
		SchemaName:   schemaName,
		SchemaVer:    schemaVer,
		MappingFile:  mappingFile,
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return pipeline.NewWithOptions(opts...)
}

// HandleProcess executes the process command.
func HandleProcess(args []string) (int, error) {
	fs, flags := SetupProcessFlags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1, fmt.Errorf("process command requires exactly one file path")
	}
	path := fs.Arg(0)

	p, err := buildPipeline(flags.ConfigFile, flags.Policy, flags.Strictness, flags.Format, flags.Streaming, flags.SchemaDir, flags.SchemaName, flags.SchemaVer, flags.Mapping)
	if err != nil {
		return 1, err
	}

	result, err := p.ProcessFile(path)
	if err != nil {
		return 1, fmt.Errorf("processing %s: %w", path, err)
	}

	if flags.Output != "" {
		var all []byte
		for _, out := range result.Outputs {
			all = append(all, out...)
		}
		if err := WriteOutputFile(flags.Output, all); err != nil {
			return 1, err
		}
	} else {
		for _, out := range result.Outputs {
			os.Stdout.Write(out)
		}
	}

	Writef(os.Stderr, "messages: %d succeeded, %d failed (quarantined=%v)\n", result.SuccessCount, result.FailureCount, result.Quarantined)

	if !result.Success {
		return 1, nil
	}
	return 0, nil
}
