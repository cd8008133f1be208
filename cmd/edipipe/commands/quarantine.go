package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/edicraft/edipipe/internal/options"
	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/store"
)

// quarantineTable is the persisted shape a QuarantinedMessage row
// takes in the database collaborator, per the quarantine store's
// in-process Entry[T] fields: it survives independently of the
// in-process map, keyed the same way.
var quarantineTable = store.TableSchema{
	Name:       "quarantined_messages",
	PrimaryKey: "id",
	Columns: []store.Column{
		{Name: "id", Kind: ir.KindString},
		{Name: "data", Kind: ir.KindBinary},
		{Name: "reason", Kind: ir.KindString},
		{Name: "error_context", Kind: ir.KindString},
		{Name: "source_id", Kind: ir.KindString},
		{Name: "quarantined_at", Kind: ir.KindString},
		{Name: "retry_count", Kind: ir.KindInteger},
		{Name: "resolved", Kind: ir.KindBoolean},
	},
}

// QuarantineFlags holds the flags shared by the quarantine
// subcommands (list, retry, purge).
type QuarantineFlags struct {
	DB        string
	ID        string
	All       bool
	OlderThan time.Duration
}

// SetupQuarantineFlags creates and configures a FlagSet for a
// quarantine subcommand.
func SetupQuarantineFlags(name string) (*flag.FlagSet, *QuarantineFlags) {
	fs := flag.NewFlagSet("quarantine "+name, flag.ContinueOnError)
	flags := &QuarantineFlags{}

	fs.StringVar(&flags.DB, "db", "", "path to the persistent quarantine database (sqlite)")
	fs.StringVar(&flags.ID, "id", "", "id of a single quarantined message")
	fs.BoolVar(&flags.All, "all", false, "apply to every quarantined message")
	fs.DurationVar(&flags.OlderThan, "older-than", 0, "purge only entries quarantined longer ago than this")

	fs.Usage = func() {
		Writef(fs.Output(), "Usage: edipipe quarantine %s [flags]\n\n", name)
		fs.PrintDefaults()
	}

	return fs, flags
}

// HandleQuarantine dispatches the quarantine list/retry/purge subcommands.
func HandleQuarantine(args []string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("quarantine command requires a subcommand: list, retry, or purge")
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "list":
		return handleQuarantineList(rest)
	case "retry":
		return handleQuarantineRetry(rest)
	case "purge":
		return handleQuarantinePurge(rest)
	default:
		return 1, fmt.Errorf("unknown quarantine subcommand %q: expected list, retry, or purge", sub)
	}
}

func openQuarantineStore(ctx context.Context, dsn string) (*store.Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	s, err := store.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := s.ApplySchema(ctx, quarantineTable); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func handleQuarantineList(args []string) (int, error) {
	fs, flags := SetupQuarantineFlags("list")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	ctx := context.Background()
	s, err := openQuarantineStore(ctx, flags.DB)
	if err != nil {
		return 1, err
	}
	defer s.Close()

	rows, err := s.Select(ctx, quarantineTable.Name, quarantineTable.Columns, "resolved = ?", []any{int64(0)}, 0, 1<<30)
	if err != nil {
		return 1, err
	}

	if len(rows) == 0 {
		Writef(os.Stdout, "no quarantined messages\n")
		return 0, nil
	}

	for _, row := range rows {
		id, _ := row["id"].AsString()
		reason, _ := row["reason"].AsString()
		errCtx, _ := row["error_context"].AsString()
		retries, _ := row["retry_count"].AsInteger()
		Writef(os.Stdout, "%s  reason=%s  retries=%d  %s\n", id, reason, retries, errCtx)
	}
	return 0, nil
}

func handleQuarantineRetry(args []string) (int, error) {
	fs, flags := SetupQuarantineFlags("retry")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	if err := options.ValidateSingleInputSource(
		"retry requires either --id <id> or --all",
		"retry accepts either --id <id> or --all, not both",
		flags.ID != "", flags.All,
	); err != nil {
		return 1, err
	}

	ctx := context.Background()
	s, err := openQuarantineStore(ctx, flags.DB)
	if err != nil {
		return 1, err
	}
	defer s.Close()

	filter, filterArgs := "resolved = ?", []any{int64(0)}
	if flags.ID != "" {
		filter, filterArgs = "id = ? AND resolved = ?", []any{flags.ID, int64(0)}
	}

	rows, err := s.Select(ctx, quarantineTable.Name, quarantineTable.Columns, filter, filterArgs, 0, 1<<30)
	if err != nil {
		return 1, err
	}
	if len(rows) == 0 {
		return 1, fmt.Errorf("no matching quarantined message")
	}

	tx, err := s.BeginTransaction(ctx, quarantineTable.Name)
	if err != nil {
		return 1, err
	}

	for _, row := range rows {
		id, _ := row["id"].AsString()
		retries, _ := row["retry_count"].AsInteger()
		if err := tx.Update(ctx, "id", row["id"], map[string]ir.Value{
			"retry_count": ir.Integer(retries + 1),
		}); err != nil {
			tx.Rollback()
			return 1, err
		}
		Writef(os.Stdout, "marked %s for retry (attempt %d) — pipe its data back through 'edipipe process'\n", id, retries+1)
	}

	if err := tx.Commit(); err != nil {
		return 1, err
	}
	return 0, nil
}

func handleQuarantinePurge(args []string) (int, error) {
	fs, flags := SetupQuarantineFlags("purge")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 1, err
	}

	ctx := context.Background()
	s, err := openQuarantineStore(ctx, flags.DB)
	if err != nil {
		return 1, err
	}
	defer s.Close()

	filter, filterArgs := "1 = 1", []any(nil)
	if flags.OlderThan > 0 {
		cutoff := time.Now().Add(-flags.OlderThan).Format(time.RFC3339)
		filter, filterArgs = "quarantined_at < ?", []any{cutoff}
	}

	rows, err := s.Select(ctx, quarantineTable.Name, quarantineTable.Columns, filter, filterArgs, 0, 1<<30)
	if err != nil {
		return 1, err
	}

	tx, err := s.BeginTransaction(ctx, quarantineTable.Name)
	if err != nil {
		return 1, err
	}
	for _, row := range rows {
		if err := tx.Update(ctx, "id", row["id"], map[string]ir.Value{"resolved": ir.Boolean(true)}); err != nil {
			tx.Rollback()
			return 1, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 1, err
	}

	Writef(os.Stdout, "purged %d entries\n", len(rows))
	return 0, nil
}
