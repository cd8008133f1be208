package store

import (
	"fmt"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// valueToSQL converts an ir.Value to the driver value bound into a
// prepared statement parameter. Booleans become 0/1 INTEGER; binary
// values pass through as []byte; everything else uses its display
// form so TEXT columns round-trip lexically exact.
func valueToSQL(v ir.Value) (any, error) {
	switch v.Kind() {
	case ir.KindNull:
		return nil, nil
	case ir.KindBoolean:
		b, _ := v.AsBoolean()
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.KindInteger:
		i, _ := v.AsInteger()
		return i, nil
	case ir.KindDecimal:
		d, _ := v.AsDecimal()
		return d, nil
	case ir.KindBinary:
		b, _ := v.AsBinary()
		return b, nil
	case ir.KindString, ir.KindDate, ir.KindTime, ir.KindDateTime:
		s, _ := v.AsString()
		return s, nil
	default:
		return nil, &edierrors.StoreError{Details: fmt.Sprintf("store: unsupported value kind %v", v.Kind())}
	}
}

// nativeToValue converts a value scanned back from the driver into an
// ir.Value, using kind as the intended column type. The driver
// returns int64 for INTEGER, float64 for REAL, string or []byte for
// TEXT, and []byte for BLOB; nil means SQL NULL regardless of kind.
func nativeToValue(kind ir.Kind, raw any) ir.Value {
	if raw == nil {
		return ir.Null()
	}

	switch kind {
	case ir.KindBoolean:
		switch n := raw.(type) {
		case int64:
			return ir.Boolean(n != 0)
		case float64:
			return ir.Boolean(n != 0)
		default:
			return ir.Boolean(false)
		}
	case ir.KindInteger:
		switch n := raw.(type) {
		case int64:
			return ir.Integer(n)
		case float64:
			return ir.Integer(int64(n))
		default:
			return ir.Integer(0)
		}
	case ir.KindDecimal:
		switch n := raw.(type) {
		case float64:
			return ir.Decimal(n)
		case int64:
			return ir.Decimal(float64(n))
		default:
			return ir.Decimal(0)
		}
	case ir.KindBinary:
		switch b := raw.(type) {
		case []byte:
			return ir.Binary(b)
		case string:
			return ir.Binary([]byte(b))
		default:
			return ir.Binary(nil)
		}
	case ir.KindDate:
		return ir.Date(stringify(raw))
	case ir.KindTime:
		return ir.Time(stringify(raw))
	case ir.KindDateTime:
		return ir.DateTime(stringify(raw))
	default:
		return ir.String(stringify(raw))
	}
}

func stringify(raw any) string {
	switch s := raw.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}
