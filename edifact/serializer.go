package edifact

import (
	"strings"

	"github.com/edicraft/edipipe/ir"
)

// EscapeReleased returns s with every occurrence of a reserved
// character (segment terminator, element separator, component
// separator, release character) preceded by sep.Release, per the
// EDIFACT release-escaping contract. Escaping is bijective on
// reserved characters and idempotent on non-reserved ones.
func EscapeReleased(s string, sep Separators) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == sep.Segment || c == sep.Element || c == sep.Component || c == sep.Release {
			b.WriteByte(sep.Release)
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Serialize renders an IR tree back to the EDIFACT wire format:
// segments as "TAG+elem1+elem2...'", composite elements joined by
// ":", with release escaping applied to every data value. Segment
// groups are transparent — their contents are emitted in place, not
// the group node itself. Only Segment, SegmentGroup, Message,
// Interchange, and Root nodes are descended into; anything else is
// skipped.
func Serialize(root *ir.Node, sep Separators) string {
	var b strings.Builder
	serializeInto(&b, root, sep)
	return b.String()
}

func serializeInto(b *strings.Builder, node *ir.Node, sep Separators) {
	switch node.NodeKind {
	case ir.KindSegment:
		b.WriteString(node.Name)
		for _, elem := range node.Children {
			b.WriteByte(sep.Element)
			writeElement(b, elem, sep)
		}
		b.WriteByte(sep.Segment)
	case ir.KindRoot, ir.KindMessage, ir.KindInterchange, ir.KindSegmentGroup:
		for _, child := range node.Children {
			serializeInto(b, child, sep)
		}
	}
}

func writeElement(b *strings.Builder, elem *ir.Node, sep Separators) {
	if len(elem.Children) == 0 {
		v, _ := elem.Value()
		b.WriteString(EscapeReleased(v.DisplayString(""), sep))
		return
	}
	for i, comp := range elem.Children {
		if i > 0 {
			b.WriteByte(sep.Component)
		}
		v, _ := comp.Value()
		b.WriteString(EscapeReleased(v.DisplayString(""), sep))
	}
}
