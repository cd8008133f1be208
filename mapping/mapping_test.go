package mapping

import (
	"testing"

	"github.com/edicraft/edipipe/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSaveRoundTripsYAML(t *testing.T) {
	src := `
name: orders_to_shipment
source_type: orders
target_type: shipment
rules:
  - type: field
    source_path: BGM/e1
    target_name: document_number
  - type: foreach
    source_path: LINE_ITEM
    target_name: items
    inner_rules:
      - type: field
        source_path: LIN/e1
        target_name: line_number
`
	m, err := Load("orders.yaml", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "orders_to_shipment", m.Name)
	require.Len(t, m.Rules, 2)
	assert.Equal(t, RuleField, m.Rules[0].Type)
	assert.Equal(t, RuleForeach, m.Rules[1].Type)
	require.Len(t, m.Rules[1].InnerRules, 1)

	out, err := Save("orders.yaml", m)
	require.NoError(t, err)

	m2, err := Load("orders.yaml", out)
	require.NoError(t, err)
	assert.Equal(t, m, m2)
}

func TestRuntimeFieldCreatesTarget(t *testing.T) {
	source := ir.NewGroup(ir.KindMessage, "ORDERS")
	source.AddChild(ir.NewLeaf(ir.KindElement, "e1", ir.String("PO-1")))

	m := &Mapping{Rules: []Rule{
		{Type: RuleField, SourcePath: "e1", TargetName: "order_number"},
	}}

	rt := NewRuntime(nil)
	target, err := rt.Execute(m, source)
	require.NoError(t, err)
	require.NotNil(t, target)
	v, ok := target.Value()
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "PO-1", s)
	assert.Equal(t, "order_number", target.Name)
}

func TestRuntimeForeachGroupsLineItems(t *testing.T) {
	source := ir.NewGroup(ir.KindMessage, "ORDERS")
	for _, val := range []string{"1", "2"} {
		li := ir.NewGroup(ir.KindSegmentGroup, "LINE_ITEM")
		lin := ir.NewGroup(ir.KindSegment, "LIN")
		lin.AddChild(ir.NewLeaf(ir.KindElement, "e1", ir.String(val)))
		li.AddChild(lin)
		source.AddChild(li)
	}

	m := &Mapping{Rules: []Rule{
		{Type: RuleForeach, SourcePath: "LINE_ITEM", TargetName: "items", InnerRules: []Rule{
			{Type: RuleField, SourcePath: "LIN/e1", TargetName: "line_number"},
		}},
	}}

	rt := NewRuntime(nil)
	target, err := rt.Execute(m, source)
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "items", target.Name)
	require.Len(t, target.Children, 2)
	v0, _ := target.Children[0].Value()
	s0, _ := v0.AsString()
	assert.Equal(t, "1", s0)
}

func TestRuntimeMissingPathYieldsNull(t *testing.T) {
	source := ir.NewGroup(ir.KindMessage, "ORDERS")
	m := &Mapping{Rules: []Rule{
		{Type: RuleField, SourcePath: "missing", TargetName: "x"},
	}}

	rt := NewRuntime(nil)
	target, err := rt.Execute(m, source)
	require.NoError(t, err)
	v, ok := target.Value()
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

func TestRuntimeLookupNeverConsultsTable(t *testing.T) {
	source := ir.NewGroup(ir.KindMessage, "ORDERS")
	source.AddChild(ir.NewLeaf(ir.KindElement, "country_code", ir.String("US")))

	m := &Mapping{
		Lookups: map[string]any{"countries": map[string]string{"US": "United States"}},
		Rules: []Rule{
			{Type: RuleLookup, Table: "countries", KeyPath: "country_code", TargetName: "country_name"},
		},
	}

	rt := NewRuntime(nil)
	target, err := rt.Execute(m, source)
	require.NoError(t, err)
	v, _ := target.Value()
	s, _ := v.AsString()
	assert.Equal(t, "LOOKUP_countries_US", s)
}

func TestRuntimeLookupUsesDefaultWhenSet(t *testing.T) {
	source := ir.NewGroup(ir.KindMessage, "ORDERS")
	m := &Mapping{Rules: []Rule{
		{Type: RuleLookup, Table: "countries", KeyPath: "country_code", TargetName: "country_name", Default: "Unknown"},
	}}

	rt := NewRuntime(nil)
	target, err := rt.Execute(m, source)
	require.NoError(t, err)
	v, _ := target.Value()
	s, _ := v.AsString()
	assert.Equal(t, "Unknown", s)
}

func TestTransformUppercasePassesNullThrough(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.applyTransform(Transform{Type: TransformUppercase}, ir.Null(), nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestTransformDateFormatConverts(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.applyTransform(Transform{Type: TransformDateFormat, From: "YYYYMMDD", To: "YYYY-MM-DD"}, ir.String("20240131"), nil)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "2024-01-31", s)
}

func TestTransformDateFormatUnsupportedLayoutErrors(t *testing.T) {
	rt := NewRuntime(nil)
	_, err := rt.applyTransform(Transform{Type: TransformDateFormat, From: "MM/DD/YYYY", To: "YYYY-MM-DD"}, ir.String("01/31/2024"), nil)
	require.Error(t, err)
}

func TestTransformNumberFormatRoundsAndGroups(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.applyTransform(Transform{Type: TransformNumberFormat, Decimals: 2, ThousandsSep: ","}, ir.Decimal(1234.5678), nil)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "1,234.57", s)

	v2, err := rt.applyTransform(Transform{Type: TransformNumberFormat, Decimals: 2}, ir.Decimal(-1234.56), nil)
	require.NoError(t, err)
	s2, _ := v2.AsString()
	assert.Equal(t, "-1234.56", s2)
}

func TestTransformConcatenateEmitsPathPlaceholder(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.applyTransform(Transform{Type: TransformConcatenate, Sep: "-", Parts: []ConcatPart{
		{Literal: "ORD"},
		{Path: "e1"},
	}}, ir.Null(), nil)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "ORD-[e1]", s)
}

func TestTransformSplitOutOfRangeErrors(t *testing.T) {
	rt := NewRuntime(nil)
	_, err := rt.applyTransform(Transform{Type: TransformSplit, Delim: ":", Index: 5}, ir.String("a:b"), nil)
	require.Error(t, err)
}

func TestTransformDefaultReplacesNullAndEmpty(t *testing.T) {
	rt := NewRuntime(nil)
	v, _ := rt.applyTransform(Transform{Type: TransformDefault, DefaultValue: "N/A"}, ir.Null(), nil)
	s, _ := v.AsString()
	assert.Equal(t, "N/A", s)

	vEmpty, _ := rt.applyTransform(Transform{Type: TransformDefault, DefaultValue: "N/A"}, ir.String(""), nil)
	sEmpty, _ := vEmpty.AsString()
	assert.Equal(t, "N/A", sEmpty)

	v2, _ := rt.applyTransform(Transform{Type: TransformDefault, DefaultValue: "N/A"}, ir.Integer(5), nil)
	i, ok := v2.AsInteger()
	require.True(t, ok)
	assert.Equal(t, int64(5), i)
}

func TestTransformChainPipelinesLeftToRight(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.applyTransform(Transform{Type: TransformChain, Transforms: []Transform{
		{Type: TransformTrim},
		{Type: TransformUppercase},
	}}, ir.String("  hello  "), nil)
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "HELLO", s)
}

type upperExtension struct {
	initCalled, cleanupCalled bool
}

func (e *upperExtension) Name() string     { return "strings" }
func (e *upperExtension) OnInit() error    { e.initCalled = true; return nil }
func (e *upperExtension) OnCleanup() error { e.cleanupCalled = true; return nil }
func (e *upperExtension) Functions() map[string]Func {
	return map[string]Func{
		"shout": func(values []ir.Value) (ir.Value, error) {
			if len(values) == 0 {
				return ir.Null(), nil
			}
			s, _ := values[0].AsString()
			return ir.String(s + "!"), nil
		},
	}
}

func TestRegistryLifecycleAndCall(t *testing.T) {
	reg := NewRegistry()
	ext := &upperExtension{}
	require.NoError(t, reg.Register(ext))
	assert.True(t, ext.initCalled)

	v, err := reg.Call("strings", "shout", []ir.Value{ir.String("hi")})
	require.NoError(t, err)
	s, _ := v.AsString()
	assert.Equal(t, "hi!", s)

	_, err = reg.Call("strings", "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shout")

	require.NoError(t, reg.Unregister("strings"))
	assert.True(t, ext.cleanupCalled)

	_, err = reg.Call("strings", "shout", nil)
	require.Error(t, err)
}

func TestRegistryCleanupAllDrains(t *testing.T) {
	reg := NewRegistry()
	ext := &upperExtension{}
	require.NoError(t, reg.Register(ext))

	require.NoError(t, reg.CleanupAll())
	assert.True(t, ext.cleanupCalled)

	_, err := reg.Call("strings", "shout", nil)
	require.Error(t, err)
}
