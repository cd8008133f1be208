package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Context carries the state threaded through rule execution: the
// source node being read, the target node under construction (nil
// until the first Field, Foreach or Lookup rule creates it),
// accumulated variables, the
// textual path accumulated so far (for diagnostics), and, inside a
// Foreach body, the current loop index.
type Context struct {
	Source    *ir.Node
	Target    *ir.Node
	Variables map[string]ir.Value
	Path      string
	LoopIndex *int
}

// NewContext creates the root Context for evaluating a Mapping
// against source.
func NewContext(source *ir.Node) *Context {
	return &Context{Source: source, Variables: make(map[string]ir.Value), Path: source.Name}
}

// child derives a new Context pointed at a different source node,
// with no target of its own yet, inheriting variables by sharing the
// parent's map, so a variable set through either Context is visible
// to both.
func (c *Context) child(source *ir.Node, path string) *Context {
	return &Context{Source: source, Variables: c.Variables, Path: path}
}

// Runtime executes a Mapping's rule tree against a Context,
// dispatching named extension functions on demand.
type Runtime struct {
	extensions *Registry
}

// NewRuntime creates a Runtime backed by registry (nil uses an empty,
// freshly-constructed Registry).
func NewRuntime(registry *Registry) *Runtime {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Runtime{extensions: registry}
}

// Execute runs m's rule tree against source and returns the resulting
// target node (nil if no rule ever produced one).
func (rt *Runtime) Execute(m *Mapping, source *ir.Node) (*ir.Node, error) {
	ctx := NewContext(source)
	if err := rt.runRules(m.Rules, ctx); err != nil {
		return nil, err
	}
	return ctx.Target, nil
}

func (rt *Runtime) runRules(rules []Rule, ctx *Context) error {
	for _, r := range rules {
		if err := rt.runRule(r, ctx); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) runRule(r Rule, ctx *Context) error {
	switch r.Type {
	case RuleField:
		return rt.runField(r, ctx)
	case RuleForeach:
		return rt.runForeach(r, ctx)
	case RuleCondition:
		return rt.runCondition(r, ctx)
	case RuleLookup:
		return rt.runLookup(r, ctx)
	case RuleBlock:
		return rt.runRules(r.Rules, ctx)
	default:
		return &edierrors.MappingError{Details: fmt.Sprintf("unknown rule type %q", r.Type)}
	}
}

func (rt *Runtime) runField(r Rule, ctx *Context) error {
	v := resolvePath(ctx.Source, r.SourcePath)
	if r.Transform != nil {
		var err error
		v, err = rt.applyTransform(*r.Transform, v, ctx)
		if err != nil {
			return err
		}
	}

	node := ir.NewLeaf(ir.KindField, r.TargetName, v)
	if ctx.Target == nil {
		ctx.Target = node
	} else {
		ctx.Target.AddChild(node)
	}
	return nil
}

func (rt *Runtime) runForeach(r Rule, ctx *Context) error {
	matches := findAll(ctx.Source, r.SourcePath)

	container := ir.NewGroup(ir.KindSegmentGroup, r.TargetName)
	for i, m := range matches {
		idx := i
		inner := ctx.child(m, fmt.Sprintf("%s/%s[%d]", ctx.Path, r.TargetName, idx))
		inner.LoopIndex = &idx
		if err := rt.runRules(r.InnerRules, inner); err != nil {
			return err
		}
		if inner.Target != nil {
			container.AddChild(inner.Target)
		}
	}

	if ctx.Target == nil {
		ctx.Target = container
	} else {
		ctx.Target.AddChild(container)
	}
	return nil
}

func (rt *Runtime) runCondition(r Rule, ctx *Context) error {
	if r.When == nil {
		return rt.runRules(r.Then, ctx)
	}
	if evalCond(*r.When, ctx.Source) {
		return rt.runRules(r.Then, ctx)
	}
	return rt.runRules(r.Else, ctx)
}

// runLookup deliberately never consults m.Lookups: per the preserved
// stub behavior, it resolves to the literal default, or a
// "LOOKUP_{table}_{key}" placeholder when no default is configured.
func (rt *Runtime) runLookup(r Rule, ctx *Context) error {
	var v ir.Value
	if r.Default != "" {
		v = ir.String(r.Default)
	} else {
		key := resolvePath(ctx.Source, r.KeyPath)
		keyStr, _ := key.AsString()
		v = ir.String(fmt.Sprintf("LOOKUP_%s_%s", r.Table, keyStr))
	}

	node := ir.NewLeaf(ir.KindField, r.TargetName, v)
	if ctx.Target == nil {
		ctx.Target = node
	} else {
		ctx.Target.AddChild(node)
	}
	return nil
}

// resolvePath resolves path against source, treating a leading "/"
// identically to a relative traversal (see the mapping path-anchoring
// open question). A missing component yields Null, never an error.
func resolvePath(source *ir.Node, path string) ir.Value {
	if path == "" {
		if v, ok := source.Value(); ok {
			return v
		}
		return ir.Null()
	}
	cursor, err := ir.Navigate(source, path)
	if err != nil {
		return ir.Null()
	}
	if v, ok := cursor.Node().Value(); ok {
		return v
	}
	return ir.Null()
}

// findAll resolves path to every matching child of source, by name:
// all but the final "/"-separated segment are navigated as a single
// child lookup each, then every child of the resulting node sharing
// the final segment's name is returned.
func findAll(source *ir.Node, path string) []*ir.Node {
	parts := strings.Split(path, "/")
	var segments []string
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) == 0 {
		return nil
	}

	parent := source
	for _, seg := range segments[:len(segments)-1] {
		child := parent.FirstChild(seg)
		if child == nil {
			return nil
		}
		parent = child
	}

	return parent.AllChildren(segments[len(segments)-1])
}

func evalCond(c Cond, source *ir.Node) bool {
	switch c.Type {
	case CondExists:
		cur, err := ir.Navigate(source, c.Path)
		return err == nil && func() bool { _, ok := cur.Node().Value(); return ok || len(cur.Node().Children) > 0 }()
	case CondEquals:
		v := resolvePath(source, c.Path)
		s, _ := v.AsString()
		return s == c.Value
	case CondContains:
		v := resolvePath(source, c.Path)
		s, _ := v.AsString()
		return strings.Contains(s, c.Value)
	case CondMatches:
		v := resolvePath(source, c.Path)
		s, _ := v.AsString()
		re, err := regexp.Compile(c.Regex)
		return err == nil && re.MatchString(s)
	case CondAnd:
		for _, op := range c.Operands {
			if !evalCond(op, source) {
				return false
			}
		}
		return true
	case CondOr:
		for _, op := range c.Operands {
			if evalCond(op, source) {
				return true
			}
		}
		return false
	case CondNot:
		return c.Operand != nil && !evalCond(*c.Operand, source)
	default:
		return false
	}
}

