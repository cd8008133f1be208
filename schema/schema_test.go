package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeChildWinsParentExtrasAppended(t *testing.T) {
	parent := &Schema{
		Name: "base", Version: "1",
		Segments: []SegmentDefinition{
			{Tag: "BGM", Mandatory: false, Elements: []ElementDefinition{
				{ID: "C002", Mandatory: true},
				{ID: "1004"},
			}},
		},
	}
	child := &Schema{
		Name: "orders", Version: "D_96A",
		Segments: []SegmentDefinition{
			{Tag: "BGM", Mandatory: true, Elements: []ElementDefinition{
				{ID: "C002", Mandatory: false, Name: "Overridden"},
				{ID: "1225"},
			}},
		},
	}

	merged := Merge(parent, child)
	require.Len(t, merged.Segments, 1)

	bgm := merged.Segments[0]
	assert.True(t, bgm.Mandatory)
	require.Len(t, bgm.Elements, 3)
	assert.Equal(t, "C002", bgm.Elements[0].ID)
	assert.Equal(t, "Overridden", bgm.Elements[0].Name)
	assert.Equal(t, "1004", bgm.Elements[1].ID)
	assert.Equal(t, "1225", bgm.Elements[2].ID)
}

func TestMergeWithNilParentIsIdentity(t *testing.T) {
	child := &Schema{Name: "x", Version: "1"}
	assert.Same(t, child, Merge(nil, child))
}

func writeSchema(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestLoadWithInheritanceDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "a_1.json", `{"name":"a","version":"1","segments":[],"inheritance":{"parent":{"name":"b","version":"1"}}}`)
	writeSchema(t, dir, "b_1.json", `{"name":"b","version":"1","segments":[],"inheritance":{"parent":{"name":"a","version":"1"}}}`)

	l := NewLoader(dir)
	_, err := l.LoadWithInheritance(SchemaRef{Name: "a", Version: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Circular dependency")
}

func TestLoadWithInheritanceMissingParent(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "a_1.json", `{"name":"a","version":"1","segments":[],"inheritance":{"parent":{"name":"ghost","version":"1"}}}`)

	l := NewLoader(dir)
	_, err := l.LoadWithInheritance(SchemaRef{Name: "a", Version: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parent schema not found")
}

func TestLoadCachesByQualifiedName(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "a_1.json", `{"name":"a","version":"1","segments":[]}`)

	l := NewLoader(dir)
	s1, err := l.Load("a", "1")
	require.NoError(t, err)
	s2, err := l.Load("a", "1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}
