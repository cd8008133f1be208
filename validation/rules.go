package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/edicraft/edipipe/internal/severity"
	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/schema"
)

// Issue is one reported validation finding.
type Issue struct {
	Path     string
	Line     int
	Severity severity.Severity
	Code     string
	Message  string
}

// Report collects the issues from one validation pass plus the
// strictness-gated outcome.
type Report struct {
	Issues []Issue
	Valid  bool
}

func (r *Report) add(sev severity.Severity, path, code, message string) {
	r.Issues = append(r.Issues, Issue{Path: path, Severity: sev, Code: code, Message: message})
}

// required fails if value is absent or Null.
func required(v ir.Value, present bool) bool {
	return present && !v.IsNull()
}

// length bounds a string's character count. A zero bound is unset.
func length(s string, min, max int) bool {
	n := len([]rune(s))
	if min > 0 && n < min {
		return false
	}
	if max > 0 && n > max {
		return false
	}
	return true
}

// pattern fails if regex does not compile, the value is empty, or the
// value does not match.
func pattern(value, regex string) bool {
	if value == "" {
		return false
	}
	re, err := regexp.Compile(regex)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// dataType validates value against one of the supported type tags.
func dataType(value, typ string) bool {
	switch strings.ToLower(typ) {
	case "integer":
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case "decimal":
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case "boolean":
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "yes", "no":
			return true
		default:
			return false
		}
	case "date":
		return len(value) == 10 && value[4] == '-' && value[7] == '-'
	case "time":
		return (len(value) == 5 || len(value) == 8) && value[2] == ':'
	case "string", "binary":
		return true
	default:
		return true
	}
}

// composite fails if any required component is empty, or the
// component count exceeds the constraint list.
func composite(components []string, constraints []schema.ElementDefinition) bool {
	if len(components) > len(constraints) {
		return false
	}
	for i, c := range constraints {
		if c.Mandatory && (i >= len(components) || components[i] == "") {
			return false
		}
	}
	return true
}

// SegmentOrderRule requires between Min and Max (0 = unbounded)
// occurrences of Tag among the input segments.
type SegmentOrderRule struct {
	Tag string
	Min int
	Max int
}

func segmentOrder(counts map[string]int, rules []SegmentOrderRule) []string {
	var failures []string
	for _, r := range rules {
		n := counts[r.Tag]
		if n < r.Min || (r.Max > 0 && n > r.Max) {
			failures = append(failures, r.Tag)
		}
	}
	return failures
}

// ConditionalRule requires all of RequiredFields to be present and
// non-null whenever the node named TriggerField exists with string
// value TriggerValue.
type ConditionalRule struct {
	TriggerField   string
	TriggerValue   string
	RequiredFields []string
}

func conditionalSatisfied(triggerNode *ir.Node, rule ConditionalRule, lookup func(name string) *ir.Node) bool {
	if triggerNode == nil {
		return true
	}
	v, ok := triggerNode.Value()
	if !ok {
		return true
	}
	s, _ := v.AsString()
	if s != rule.TriggerValue {
		return true
	}
	for _, field := range rule.RequiredFields {
		n := lookup(field)
		if n == nil {
			return false
		}
		fv, ok := n.Value()
		if !ok || fv.IsNull() {
			return false
		}
	}
	return true
}

// codeList reports whether value is one of codes.
func codeList(value string, codes []string, caseSensitive bool) bool {
	for _, c := range codes {
		if caseSensitive {
			if value == c {
				return true
			}
		} else if strings.EqualFold(value, c) {
			return true
		}
	}
	return false
}
