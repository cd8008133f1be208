// Package csvadapter reads delimited text into the shared
// intermediate representation, applying a configurable null policy
// and optional typed coercion per column.
package csvadapter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// NullRepresentation selects which raw cell strings are treated as
// Null rather than an ordinary (possibly empty) string.
type NullRepresentation int

const (
	// NullStringToken treats the literal string "NULL" (case-sensitive) as Null.
	NullStringToken NullRepresentation = iota
	// BackslashN treats the literal string `\N` as Null.
	BackslashN
	// Custom treats a caller-supplied token as Null.
	Custom
	// EmptyString treats the empty string as Null.
	EmptyString
)

// ColumnType drives typed coercion for a configured column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeDateTime
	TypeTime
)

// Config configures a Reader.
type Config struct {
	HasHeader bool
	Delimiter byte
	// QuoteChar is accepted for schema compatibility but not
	// otherwise honored: encoding/csv, which does the actual
	// byte-level record splitting, always quotes with '"'.
	QuoteChar          byte
	NullRepresentation NullRepresentation
	CustomNullToken    string
	// ColumnTypes maps header name to its declared type. A nil map
	// means no schema is present and InferAndParse is used instead.
	ColumnTypes map[string]ColumnType
}

// DefaultConfig returns the RFC-4180 default: comma delimiter, double
// quote, and no-schema type inference.
func DefaultConfig() Config {
	return Config{HasHeader: true, Delimiter: ',', QuoteChar: '"', NullRepresentation: EmptyString}
}

// Record is one parsed CSV row: header-ordered raw cell strings.
type Record struct {
	Line   int
	Fields []string
}

// RowMismatchKind distinguishes a row with too few columns from one with too many.
type RowMismatchKind int

const (
	MismatchMissing RowMismatchKind = iota
	MismatchExtra
)

// RowMismatch reports a row whose column count didn't match the header.
type RowMismatch struct {
	Line     int
	Kind     RowMismatchKind
	Expected int
	Actual   int
}

// Reader scans CSV bytes into Records, synthesizing col_0..col_{n-1}
// headers when Config.HasHeader is false. Byte-level tokenization
// (quoting, embedded delimiters, embedded newlines inside a quoted
// field) is delegated entirely to encoding/csv; Reader only layers
// null-representation and header/width bookkeeping on top.
type Reader struct {
	cfg        Config
	csvReader  *csv.Reader
	header     []string
	line       int
	started    bool
	Mismatches []RowMismatch
}

// NewReader creates a Reader over r. The underlying encoding/csv.Reader
// is configured with FieldsPerRecord=-1 so ragged rows are returned
// rather than rejected outright; Reader records the mismatch itself so
// callers can decide how to handle it instead of aborting the read.
func NewReader(r io.Reader, cfg Config) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = rune(cfg.Delimiter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Reader{cfg: cfg, csvReader: cr}
}

// Header returns the effective header, populated after the first
// record has been read.
func (rd *Reader) Header() []string { return rd.header }

// Next reads and returns the next Record, or ok=false at end of input.
func (rd *Reader) Next() (*Record, bool, error) {
	if !rd.started {
		rd.started = true
		if rd.cfg.HasHeader {
			row, err := rd.csvReader.Read()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, false, nil
				}
				return nil, false, err
			}
			rd.line++
			rd.header = row
		}
	}

	fields, err := rd.csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		return nil, false, err
	}
	rd.line, _ = rd.csvReader.FieldPos(0)

	if rd.header == nil {
		rd.header = make([]string, len(fields))
		for i := range fields {
			rd.header[i] = fmt.Sprintf("col_%d", i)
		}
	} else if len(fields) != len(rd.header) {
		kind := MismatchMissing
		if len(fields) > len(rd.header) {
			kind = MismatchExtra
		}
		rd.Mismatches = append(rd.Mismatches, RowMismatch{Line: rd.line, Kind: kind, Expected: len(rd.header), Actual: len(fields)})
	}

	return &Record{Line: rd.line, Fields: fields}, true, nil
}

func (rd *Reader) isNull(raw string) bool {
	switch rd.cfg.NullRepresentation {
	case EmptyString:
		return raw == ""
	case NullStringToken:
		return raw == "NULL"
	case BackslashN:
		return raw == `\N`
	case Custom:
		return raw == rd.cfg.CustomNullToken
	default:
		return false
	}
}

// ParseTyped coerces raw into Value according to colType, after null
// substitution. Integer/Decimal/Boolean mismatches are reported as
// conversion errors; Date/Time/DateTime pass through untyped with no
// format validation.
func ParseTyped(raw string, colType ColumnType) (ir.Value, error) {
	switch colType {
	case TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ir.Value{}, fmt.Errorf("csvadapter: %q is not a valid integer", raw)
		}
		return ir.Integer(n), nil
	case TypeDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ir.Value{}, fmt.Errorf("csvadapter: %q is not a valid decimal", raw)
		}
		return ir.Decimal(f), nil
	case TypeBoolean:
		b, ok := parseBoolToken(raw)
		if !ok {
			return ir.Value{}, fmt.Errorf("csvadapter: %q is not a valid boolean", raw)
		}
		return ir.Boolean(b), nil
	case TypeDate:
		return ir.Date(raw), nil
	case TypeDateTime:
		return ir.DateTime(raw), nil
	case TypeTime:
		return ir.Time(raw), nil
	default:
		return ir.String(raw), nil
	}
}

func parseBoolToken(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "yes", "y", "1", "t":
		return true, true
	case "false", "no", "n", "0", "f":
		return false, true
	default:
		return false, false
	}
}

// InferAndParse coerces raw with no schema present: Integer, then
// Decimal, then Boolean (true/false/yes/no/y/n/1/0/t/f, case
// insensitive), falling back to String.
func InferAndParse(raw string) ir.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ir.Integer(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return ir.Decimal(f)
	}
	if b, ok := parseBoolToken(raw); ok {
		return ir.Boolean(b)
	}
	return ir.String(raw)
}

// ReadToIR eagerly reads every record into a Root node named
// "csv_data" with one Record child per row (named "record_N",
// zero-based) and Field grandchildren named by header.
func ReadToIR(r io.Reader, cfg Config) (*ir.Node, []RowMismatch, error) {
	rd := NewReader(r, cfg)
	root := ir.NewGroup(ir.KindRoot, "csv_data")

	rowIdx := 0
	for {
		rec, ok, err := rd.Next()
		if err != nil {
			return nil, rd.Mismatches, &edierrors.ParseError{Line: rec.lineOr(0), Message: err.Error()}
		}
		if !ok {
			break
		}

		recordNode := ir.NewGroup(ir.KindRecord, fmt.Sprintf("record_%d", rowIdx))
		for i, raw := range rec.Fields {
			if i >= len(rd.header) {
				break
			}
			name := rd.header[i]
			var value ir.Value
			if rd.isNull(raw) {
				value = ir.Null()
			} else if colType, ok := cfg.ColumnTypes[name]; ok {
				v, err := ParseTyped(raw, colType)
				if err != nil {
					return nil, rd.Mismatches, err
				}
				value = v
			} else {
				value = InferAndParse(raw)
			}
			recordNode.AddChild(ir.NewLeaf(ir.KindField, name, value))
		}
		root.AddChild(recordNode)
		rowIdx++
	}

	return root, rd.Mismatches, nil
}

func (r *Record) lineOr(def int) int {
	if r == nil {
		return def
	}
	return r.Line
}
