package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// applyTransform dispatches a Transform by its Type tag. Every
// transform operates purely on v; ctx is only handed on to nested
// transforms by Conditional and Chain. Concatenate renders field-path
// parts as literal "[path]" text without consulting ctx.
func (rt *Runtime) applyTransform(t Transform, v ir.Value, ctx *Context) (ir.Value, error) {
	switch t.Type {
	case TransformUppercase:
		return stringCase(v, strings.ToUpper), nil
	case TransformLowercase:
		return stringCase(v, strings.ToLower), nil
	case TransformTrim:
		return stringCase(v, strings.TrimSpace), nil
	case TransformDateFormat:
		return dateFormat(v, t.From, t.To)
	case TransformNumberFormat:
		return numberFormat(v, t.Decimals, t.ThousandsSep)
	case TransformConcatenate:
		return concatenate(t.Parts, t.Sep), nil
	case TransformSplit:
		return split(v, t.Delim, t.Index)
	case TransformDefault:
		return defaultValue(v, t.DefaultValue), nil
	case TransformConditional:
		return conditionalTransform(rt, t, v, ctx)
	case TransformChain:
		return chain(rt, t.Transforms, v, ctx)
	default:
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("unknown transform type %q", t.Type)}
	}
}

// stringCase passes Null through unchanged; a non-string input is
// first coerced to its display string.
func stringCase(v ir.Value, f func(string) string) ir.Value {
	if v.IsNull() {
		return v
	}
	s, ok := v.AsString()
	if !ok {
		s = v.DisplayString("")
	}
	return ir.String(f(s))
}

var dateLayouts = map[string]string{
	"YYYYMMDD":   "20060102",
	"YYYY-MM-DD": "2006-01-02",
	"DDMMYYYY":   "02012006",
}

func dateFormat(v ir.Value, from, to string) (ir.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	s, ok := v.AsString()
	if !ok {
		s = v.DisplayString("")
	}

	fromLayout, ok := dateLayouts[from]
	if !ok {
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("unsupported date_format input layout %q", from)}
	}
	toLayout, ok := dateLayouts[to]
	if !ok {
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("unsupported date_format output layout %q", to)}
	}

	parsed, err := time.Parse(fromLayout, s)
	if err != nil {
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("date_format: %q does not match layout %q", s, from), Cause: err}
	}
	return ir.String(parsed.Format(toLayout)), nil
}

// numberFormat rounds a Decimal/Integer/numeric-string value to
// decimals places, then, if thousandsSep is set, groups the integer
// part in threes from the right.
func numberFormat(v ir.Value, decimals int, thousandsSep string) (ir.Value, error) {
	f, ok := numericOf(v)
	if !ok {
		return ir.Value{}, &edierrors.MappingError{Details: "number_format: value is not numeric"}
	}

	rounded := strconv.FormatFloat(f, 'f', decimals, 64)

	neg := strings.HasPrefix(rounded, "-")
	if neg {
		rounded = rounded[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(rounded, ".")

	if thousandsSep != "" {
		intPart = groupThousands(intPart, thousandsSep)
	}

	out := intPart
	if hasFrac {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return ir.String(out), nil
}

func numericOf(v ir.Value) (float64, bool) {
	if d, ok := v.AsDecimal(); ok {
		return d, true
	}
	if i, ok := v.AsInteger(); ok {
		return float64(i), true
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func groupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// concatenate joins parts by sep. Field-path parts render as the
// literal placeholder "[path]" rather than resolving against any
// context, per the preserved stub behavior.
func concatenate(parts []ConcatPart, sep string) ir.Value {
	rendered := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Path != "" {
			rendered = append(rendered, "["+p.Path+"]")
			continue
		}
		rendered = append(rendered, p.Literal)
	}
	return ir.String(strings.Join(rendered, sep))
}

func split(v ir.Value, delim string, index int) (ir.Value, error) {
	s, ok := v.AsString()
	if !ok {
		s = v.DisplayString("")
	}
	parts := strings.Split(s, delim)
	if index < 0 || index >= len(parts) {
		return ir.Value{}, &edierrors.MappingError{Details: fmt.Sprintf("split: index %d out of range (%d parts)", index, len(parts))}
	}
	return ir.String(parts[index]), nil
}

// defaultValue replaces Null or an empty string with defaultValue;
// any other value, including numeric ones, passes through unchanged.
func defaultValue(v ir.Value, defaultVal string) ir.Value {
	if v.IsNull() {
		return ir.String(defaultVal)
	}
	if s, ok := v.AsString(); ok && s == "" {
		return ir.String(defaultVal)
	}
	return v
}

// conditionalTransform evaluates a simplified condition against the
// current value only, not the source tree, distinct from the
// runtime-level Condition rule.
func conditionalTransform(rt *Runtime, t Transform, v ir.Value, ctx *Context) (ir.Value, error) {
	if t.When == nil {
		return v, nil
	}
	if evalValueCond(*t.When, v) {
		if t.Then == nil {
			return v, nil
		}
		return rt.applyTransform(*t.Then, v, ctx)
	}
	if t.Else == nil {
		return v, nil
	}
	return rt.applyTransform(*t.Else, v, ctx)
}

func evalValueCond(c Cond, v ir.Value) bool {
	s, ok := v.AsString()
	if !ok {
		s = v.DisplayString("")
	}
	switch c.Type {
	case CondExists:
		return !v.IsNull()
	case CondEquals:
		return s == c.Value
	case CondContains:
		return strings.Contains(s, c.Value)
	default:
		return false
	}
}

func chain(rt *Runtime, transforms []Transform, v ir.Value, ctx *Context) (ir.Value, error) {
	cur := v
	for _, t := range transforms {
		var err error
		cur, err = rt.applyTransform(t, cur, ctx)
		if err != nil {
			return ir.Value{}, err
		}
	}
	return cur, nil
}
