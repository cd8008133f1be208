package commands

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/edicraft/edipipe/config"
	"github.com/edicraft/edipipe/edifact"
	"github.com/edicraft/edipipe/internal/severity"
	"github.com/edicraft/edipipe/schema"
	"github.com/edicraft/edipipe/validation"
)

// ValidateFlags holds the flags for the validate command.
type ValidateFlags struct {
	Strictness string
	SchemaDir  string
	SchemaName string
	SchemaVer  string
	Format     string
}

// SetupValidateFlags creates and configures a FlagSet for the validate command.
func SetupValidateFlags() (*flag.FlagSet, *ValidateFlags) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags := &ValidateFlags{}

	fs.StringVar(&flags.Strictness, "strictness", "Moderate", "validation strictness: Strict, Moderate, or Lenient")
	fs.StringVar(&flags.SchemaDir, "schema-dir", "", "directory to search for schema files")
	fs.StringVar(&flags.SchemaName, "schema-name", "", "name of the schema to validate against")
	fs.StringVar(&flags.SchemaVer, "schema-version", "", "version of the schema to validate against")
	fs.StringVar(&flags.Format, "format", FormatText, "output format: text, json, or yaml")

	fs.Usage = func() {
		Writef(fs.Output(), "Usage: edipipe validate [flags] <file>\n\n")
		Writef(fs.Output(), "Validate every message in <file> against a schema, without rendering output.\n\n")
		Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		Writef(fs.Output(), "\nExit Codes:\n")
		Writef(fs.Output(), "  0    Every message passed validation under the given strictness\n")
		Writef(fs.Output(), "  1    At least one message failed validation\n")
	}

	return fs, flags
}

// HandleValidate executes the validate command.
func HandleValidate(args []string) (int, error) {
	fs, flags := SetupValidateFlags()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1, fmt.Errorf("validate command requires exactly one file path")
	}
	path := fs.Arg(0)

	if err := ValidateOutputFormat(flags.Format); err != nil {
		return 1, err
	}

	strictness, err := config.ParseStrictness(flags.Strictness)
	if err != nil {
		return 1, err
	}

	var sch *schema.Schema
	if flags.SchemaName != "" {
		loader := schema.NewLoader(flags.SchemaDir)
		sch, err = loader.Load(flags.SchemaName, flags.SchemaVer)
		if err != nil {
			return 1, err
		}
	}
	engine := validation.NewEngine(sch, strictness)

	content, err := os.ReadFile(path)
	if err != nil {
		return 1, fmt.Errorf("reading %s: %w", path, err)
	}

	docs, err := edifact.NewParser(content).ParseAll()
	if err != nil {
		return 1, fmt.Errorf("parsing %s: %w", path, err)
	}

	reports := make([]*validation.Report, 0, len(docs))
	allValid := true
	for _, doc := range docs {
		report := engine.Validate(doc)
		if doc.Root == nil || len(doc.Root.Children) == 0 {
			report.Issues = append(report.Issues, validation.Issue{
				Path:     "/MESSAGE",
				Severity: severity.SeverityError,
				Code:     "empty_document",
				Message:  "document has no segment content",
			})
			if strictness.Fails(severity.SeverityError) {
				report.Valid = false
			}
		}
		reports = append(reports, report)
		if !report.Valid {
			allValid = false
		}
	}

	if flags.Format == FormatJSON || flags.Format == FormatYAML {
		if err := OutputStructured(reports, flags.Format); err != nil {
			return 1, err
		}
	} else {
		for i, report := range reports {
			if report.Valid {
				Writef(os.Stderr, "message %d: valid\n", i+1)
				continue
			}
			Writef(os.Stderr, "message %d: invalid (%d issues)\n", i+1, len(report.Issues))
			for _, issue := range report.Issues {
				Writef(os.Stderr, "  [%s] %s: %s\n", issue.Severity, issue.Path, issue.Message)
			}
		}
	}

	if !allValid {
		return 1, nil
	}
	return 0, nil
}
