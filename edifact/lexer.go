package edifact

import (
	"fmt"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Element is a single EDIFACT data element. Simple elements carry one
// value; composites carry two or more component values, with empty
// slots preserved at any position.
type Element struct {
	Composite bool
	Values    [][]byte
}

// Segment is one lexed EDIFACT segment: a 3-character tag plus its
// elements, located by line/column/offset in the source.
type Segment struct {
	Tag      string
	Elements []Element
	Position ir.Position
}

// Lexer scans a byte stream into a sequence of Segments. It detects
// and honors a leading UNA service-string advice, then applies the
// scanning contract described in the component design to each
// subsequent segment: tag read, element/component scanning with
// release-character escaping, and empty-slot preservation.
type Lexer struct {
	data       []byte
	pos        int
	line       int
	column     int
	separators Separators
}

// NewLexer creates a Lexer over data, consuming a leading UNA prefix
// (exactly nine bytes) if present at offset zero and configuring the
// separators from it; otherwise DefaultSeparators are used.
func NewLexer(data []byte) *Lexer {
	l := &Lexer{data: data, line: 1, column: 1, separators: DefaultSeparators()}
	if sep, ok := parseUNA(data); ok {
		l.separators = sep
		l.advance(9)
	}
	return l
}

// Separators returns the separator set in effect (default, or as
// configured by a leading UNA prefix).
func (l *Lexer) Separators() Separators { return l.separators }

func (l *Lexer) isEmpty() bool { return l.pos >= len(l.data) }

func (l *Lexer) peek() (byte, bool) {
	if l.isEmpty() {
		return 0, false
	}
	return l.data[l.pos], true
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && !l.isEmpty(); i++ {
		if l.data[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.pos++
	}
}

func (l *Lexer) skipWhitespace() {
	for {
		b, ok := l.peek()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			l.advance(1)
		default:
			return
		}
	}
}

// readUntilDelimiter scans bytes up to (and consuming) the next
// unescaped component, element, or segment separator, honoring the
// release character as an escape for the following byte. It returns
// the accumulated value and the delimiter encountered, or ok=false if
// the input ended first.
func (l *Lexer) readUntilDelimiter() (value []byte, delimiter byte, ok bool) {
	for {
		b, present := l.peek()
		if !present {
			return value, 0, false
		}
		if b == l.separators.Release {
			l.advance(1)
			if esc, present2 := l.peek(); present2 {
				value = append(value, esc)
				l.advance(1)
			}
			continue
		}
		if b == l.separators.Component || b == l.separators.Element || b == l.separators.Segment {
			l.advance(1)
			return value, b, true
		}
		value = append(value, b)
		l.advance(1)
	}
}

func (l *Lexer) readTag() (string, bool) {
	if len(l.data)-l.pos < 3 {
		return "", false
	}
	tag := string(l.data[l.pos : l.pos+3])
	l.advance(3)
	return tag, true
}

// Next reads the next Segment from the stream. ok is false with a nil
// error when the input is exhausted.
func (l *Lexer) Next() (*Segment, bool, error) {
	l.skipWhitespace()
	if l.isEmpty() {
		return nil, false, nil
	}

	line, column := l.line, l.column
	tag, ok := l.readTag()
	if !ok {
		return nil, false, &edierrors.ParseError{Line: line, Column: column, Message: "expected segment tag (3 characters)"}
	}

	pos := ir.Position{Line: l.line, Column: l.column, Offset: l.pos}

	if tag == "UNA" {
		// A UNA after offset zero leaves the separators unchanged; its
		// six service characters are skipped so scanning resumes at the
		// next segment tag.
		l.advance(6)
		return &Segment{Tag: tag, Position: pos}, true, nil
	}

	if next, present := l.peek(); present {
		if next != l.separators.Element && next != l.separators.Segment {
			return nil, false, &edierrors.ParseError{Line: l.line, Column: l.column,
				Message: fmt.Sprintf("expected element separator or segment terminator after tag %q", tag)}
		}
	}

	if next, present := l.peek(); present && next == l.separators.Element {
		l.advance(1)
	}

	var elements []Element
	var components [][]byte

	for {
		value, delimiter, present := l.readUntilDelimiter()
		if !present {
			components = append(components, value)
			elements = append(elements, finalizeElement(components))
			break
		}

		if len(value) == 0 && len(components) == 0 {
			switch delimiter {
			case l.separators.Element:
				elements = append(elements, Element{Values: [][]byte{{}}})
				continue
			case l.separators.Component:
				components = [][]byte{{}}
				continue
			case l.separators.Segment:
				if len(elements) == 0 {
					return &Segment{Tag: tag, Position: pos}, true, nil
				}
				elements = append(elements, Element{Values: [][]byte{{}}})
				return &Segment{Tag: tag, Elements: elements, Position: pos}, true, nil
			}
		}

		switch delimiter {
		case l.separators.Component:
			components = append(components, value)
		case l.separators.Element:
			components = append(components, value)
			elements = append(elements, finalizeElement(components))
			components = nil
		case l.separators.Segment:
			components = append(components, value)
			elements = append(elements, finalizeElement(components))
			return &Segment{Tag: tag, Elements: elements, Position: pos}, true, nil
		}
	}

	return &Segment{Tag: tag, Elements: elements, Position: pos}, true, nil
}

func finalizeElement(components [][]byte) Element {
	if len(components) == 1 {
		return Element{Values: components}
	}
	return Element{Composite: true, Values: components}
}

// ToNode converts a Segment into an ir.Node of NodeKind Segment, with
// simple elements as a single Element leaf and composites expanding
// into Component children, decoding bytes as lossy UTF-8.
func (s *Segment) ToNode() *ir.Node {
	node := ir.NewGroup(ir.KindSegment, s.Tag)
	node.Position = &s.Position
	node.SetAttr("source_line", fmt.Sprintf("%d", s.Position.Line))
	node.SetAttr("source_column", fmt.Sprintf("%d", s.Position.Column))

	for i, elem := range s.Elements {
		name := fmt.Sprintf("e%d", i+1)
		if !elem.Composite {
			node.AddChild(ir.NewLeaf(ir.KindElement, name, ir.String(string(elem.Values[0]))))
			continue
		}
		elemNode := ir.NewGroup(ir.KindElement, name)
		for j, comp := range elem.Values {
			elemNode.AddChild(ir.NewLeaf(ir.KindComponent, fmt.Sprintf("c%d", j+1), ir.String(string(comp))))
		}
		node.AddChild(elemNode)
	}
	return node
}
