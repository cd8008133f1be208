package edifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerEmptyCompositeMiddleComponent(t *testing.T) {
	lex := NewLexer([]byte(`NAD+BY+1234567890123::9'`))

	seg, ok, err := lex.Next()
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, seg.Elements, 2)
	assert.False(t, seg.Elements[0].Composite)
	assert.Equal(t, "BY", string(seg.Elements[0].Values[0]))

	assert.True(t, seg.Elements[1].Composite)
	require.Len(t, seg.Elements[1].Values, 3)
	assert.Equal(t, "1234567890123", string(seg.Elements[1].Values[0]))
	assert.Equal(t, "", string(seg.Elements[1].Values[1]))
	assert.Equal(t, "9", string(seg.Elements[1].Values[2]))

	_, ok, err = lex.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParserGroupsORDERSLineItems(t *testing.T) {
	input := "UNH+1+ORDERS:D:96A:UN'BGM+220+PO123+9'LIN+1++1:EN'QTY+21:10'LIN+2++2:EN'QTY+21:5'UNT+7+1'"

	docs, err := NewParser([]byte(input)).ParseAll()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "ORDERS", doc.Metadata.DocType)
	assert.Equal(t, "D_96A", doc.Metadata.Version)

	root := doc.Root
	require.Len(t, root.Children, 3)
	assert.Equal(t, "BGM", root.Children[0].Name)

	for _, group := range root.Children[1:] {
		assert.Equal(t, "LINE_ITEM", group.Name)
		require.NotEmpty(t, group.Children)
		assert.Equal(t, "LIN", group.Children[0].Name)
	}
}

func TestUNAPrefixReconfiguresSeparators(t *testing.T) {
	lex := NewLexer([]byte("UNA:+.? 'NAD+BY+1234'"))
	assert.Equal(t, byte(':'), lex.Separators().Component)
	assert.Equal(t, byte('+'), lex.Separators().Element)
	assert.Equal(t, byte('\''), lex.Separators().Segment)

	seg, ok, err := lex.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "NAD", seg.Tag)
}
