package validation

import (
	"fmt"

	"github.com/edicraft/edipipe/internal/severity"
	"github.com/edicraft/edipipe/ir"
	"github.com/edicraft/edipipe/schema"
)

// Engine validates a Document in document order (segments, then each
// segment's elements, then any components within a composite element),
// against an optional Schema plus the built-in generic rule set, gating
// the overall pass/fail outcome by a configured Strictness.
type Engine struct {
	Schema     *schema.Schema
	Strictness Strictness
}

// NewEngine constructs an Engine. schema may be nil, in which case no
// issues are reported: every rule is driven by a schema definition.
func NewEngine(sch *schema.Schema, strictness Strictness) *Engine {
	return &Engine{Schema: sch, Strictness: strictness}
}

// Validate walks doc.Root and produces a Report. The final Valid flag
// is false if any collected Issue's severity Fails under e.Strictness.
func (e *Engine) Validate(doc *ir.Document) *Report {
	report := &Report{Valid: true}
	if doc == nil || doc.Root == nil {
		return report
	}

	segments := collectSegments(doc.Root)

	if e.Schema != nil {
		e.checkSegmentOrder(segments, report)
	}

	for _, seg := range segments {
		e.validateSegment(seg, report)
	}

	for _, issue := range report.Issues {
		if e.Strictness.Fails(issue.Severity) {
			report.Valid = false
			break
		}
	}

	return report
}

// collectSegments flattens every Segment node under root, in document order.
func collectSegments(root *ir.Node) []*ir.Node {
	var segments []*ir.Node
	ir.Walk(root, walkFunc(func(n *ir.Node) ir.Action {
		if n.NodeKind == ir.KindSegment {
			segments = append(segments, n)
			return ir.SkipChildren
		}
		return ir.Continue
	}))
	return segments
}

// walkFunc adapts a single callback, invoked uniformly on Enter and
// Visit, into an ir.Visitor.
type walkFunc func(*ir.Node) ir.Action

func (f walkFunc) Enter(n *ir.Node) ir.Action { return f(n) }
func (f walkFunc) Visit(n *ir.Node) ir.Action { return f(n) }
func (f walkFunc) Leave(n *ir.Node)           {}

func (e *Engine) checkSegmentOrder(segments []*ir.Node, report *Report) {
	counts := make(map[string]int)
	for _, seg := range segments {
		counts[seg.Name]++
	}

	rules := make([]SegmentOrderRule, len(e.Schema.Segments))
	for i, def := range e.Schema.Segments {
		min := 0
		if def.Mandatory {
			min = 1
		}
		rules[i] = SegmentOrderRule{Tag: def.Tag, Min: min, Max: def.MaxRepeat}
	}

	failed := make(map[string]bool)
	for _, tag := range segmentOrder(counts, rules) {
		failed[tag] = true
	}

	for _, def := range e.Schema.Segments {
		if !failed[def.Tag] {
			continue
		}
		n := counts[def.Tag]
		if def.Mandatory && n == 0 {
			report.add(severity.SeverityError, def.Tag, "SEGMENT_MISSING",
				fmt.Sprintf("mandatory segment %q not present", def.Tag))
		}
		if def.MaxRepeat > 0 && n > def.MaxRepeat {
			report.add(severity.SeverityError, def.Tag, "SEGMENT_REPEAT_EXCEEDED",
				fmt.Sprintf("segment %q occurs %d times, max %d", def.Tag, n, def.MaxRepeat))
		}
	}
}

func (e *Engine) validateSegment(seg *ir.Node, report *Report) {
	var def *schema.SegmentDefinition
	if e.Schema != nil {
		for i := range e.Schema.Segments {
			if e.Schema.Segments[i].Tag == seg.Name {
				def = &e.Schema.Segments[i]
				break
			}
		}
	}

	byID := make(map[string]*ir.Node)

	for i, elemNode := range seg.Children {
		path := seg.Name + "/" + elemNode.Name
		var elemDef *schema.ElementDefinition
		if def != nil && i < len(def.Elements) {
			elemDef = &def.Elements[i]
			byID[elemDef.ID] = elemNode
		}
		e.validateElement(elemNode, elemDef, path, report)
	}

	if def != nil && len(seg.Children) < len(def.Elements) {
		for i := len(seg.Children); i < len(def.Elements); i++ {
			if def.Elements[i].Mandatory {
				report.add(severity.SeverityError, fmt.Sprintf("%s/e%d", seg.Name, i+1), "REQUIRED",
					fmt.Sprintf("mandatory element %q missing from segment %q", def.Elements[i].ID, seg.Name))
			}
		}
	}

	if def != nil {
		e.checkConditionals(seg.Name, def.Conditionals, byID, report)
	}
}

func (e *Engine) checkConditionals(segName string, rules []schema.ConditionalElementRule, byID map[string]*ir.Node, report *Report) {
	lookup := func(name string) *ir.Node { return byID[name] }
	for _, cr := range rules {
		rule := ConditionalRule{TriggerField: cr.TriggerField, TriggerValue: cr.TriggerValue, RequiredFields: cr.RequiredFields}
		if !conditionalSatisfied(byID[cr.TriggerField], rule, lookup) {
			report.add(severity.SeverityError, segName+"/"+cr.TriggerField, "CONDITIONAL",
				fmt.Sprintf("%v required when %q is %q", cr.RequiredFields, cr.TriggerField, cr.TriggerValue))
		}
	}
}

func (e *Engine) validateElement(elemNode *ir.Node, def *schema.ElementDefinition, path string, report *Report) {
	if len(elemNode.Children) > 0 {
		// Composite element: component count is checked against
		// def.Components (if declared), then each component is
		// validated against its matching per-index definition.
		if def != nil && len(def.Components) > 0 {
			components := make([]string, len(elemNode.Children))
			for i, c := range elemNode.Children {
				if v, ok := c.Value(); ok {
					components[i], _ = v.AsString()
				}
			}
			if !composite(components, def.Components) {
				report.add(severity.SeverityError, path, "COMPOSITE",
					fmt.Sprintf("composite %q has %d components, constraint allows %d", path, len(components), len(def.Components)))
			}
		}

		for i, c := range elemNode.Children {
			var compDef *schema.ElementDefinition
			if def != nil && i < len(def.Components) {
				compDef = &def.Components[i]
			}
			e.validateLeaf(c, compDef, fmt.Sprintf("%s/c%d", path, i+1), report)
		}
		return
	}

	e.validateLeaf(elemNode, def, path, report)
}

func (e *Engine) validateLeaf(node *ir.Node, def *schema.ElementDefinition, path string, report *Report) {
	v, hasValue := node.Value()

	if def == nil {
		return
	}

	if def.Mandatory && !required(v, hasValue) {
		report.add(severity.SeverityError, path, "REQUIRED", "required element is missing or null")
		return
	}

	if !hasValue || v.IsNull() {
		return
	}

	s, _ := v.AsString()

	if def.MinLength > 0 || def.MaxLength > 0 {
		if !length(s, def.MinLength, def.MaxLength) {
			report.add(severity.SeverityWarning, path, "LENGTH",
				fmt.Sprintf("value %q out of bounds [%d,%d]", s, def.MinLength, def.MaxLength))
		}
	}

	if def.DataType != "" && !dataType(s, def.DataType) {
		report.add(severity.SeverityError, path, "DATA_TYPE",
			fmt.Sprintf("value %q is not a valid %s", s, def.DataType))
	}

	if def.Pattern != "" && !pattern(s, def.Pattern) {
		report.add(severity.SeverityError, path, "PATTERN",
			fmt.Sprintf("value %q does not match pattern %q", s, def.Pattern))
	}

	if len(def.CodeList) > 0 && !codeList(s, def.CodeList, def.CodeListCaseSensitive) {
		report.add(severity.SeverityError, path, "CODE_LIST",
			fmt.Sprintf("value %q is not in allowed codes %v", s, def.CodeList))
	}
}
