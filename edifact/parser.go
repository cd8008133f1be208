package edifact

import (
	"strings"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Parser assembles a Lexer's segment stream into one ir.Document per
// UNH/UNT-delimited message, tracking interchange-level context (UNB)
// across messages and grouping ORDERS line items / DESADV packages
// into segment-group children.
type Parser struct {
	lexer *Lexer

	scratch []*Segment
	sawUNB  bool
}

// NewParser creates a Parser reading from data.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// ParseAll lexes and assembles every message in the input, returning
// one ir.Document per UNH/UNT pair. Messages that never receive a UNH
// are discarded silently. If the input ends without a final UNT, the
// scratch buffer is flushed as a best-effort message.
func (p *Parser) ParseAll() ([]*ir.Document, error) {
	var docs []*ir.Document

	for {
		seg, ok, err := p.lexer.Next()
		if err != nil {
			return docs, err
		}
		if !ok {
			break
		}

		switch seg.Tag {
		case "UNA":
			continue
		case "UNB":
			p.scratch = []*Segment{seg}
			p.sawUNB = true
			continue
		case "UNZ":
			p.scratch = nil
			p.sawUNB = false
			continue
		}

		p.scratch = append(p.scratch, seg)

		if seg.Tag == "UNT" {
			if doc := p.buildMessage(p.scratch); doc != nil {
				docs = append(docs, doc)
			}
			if p.sawUNB {
				p.scratch = []*Segment{p.scratch[0]}
			} else {
				p.scratch = nil
			}
		}
	}

	if doc := p.buildMessage(p.scratch); doc != nil {
		docs = append(docs, doc)
	}

	return docs, nil
}

// ParseMessage is a convenience wrapper over ParseAll for inputs known
// to carry exactly one message; it errors if zero or more than one
// message is produced.
func ParseMessage(data []byte) (*ir.Document, error) {
	docs, err := NewParser(data).ParseAll()
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, &edierrors.ParseError{Message: "expected exactly one message"}
	}
	return docs[0], nil
}

func findUNH(segments []*Segment) *Segment {
	for _, s := range segments {
		if s.Tag == "UNH" {
			return s
		}
	}
	return nil
}

func elementSimpleString(seg *Segment, idx int) string {
	if idx < 0 || idx >= len(seg.Elements) {
		return ""
	}
	return string(seg.Elements[idx].Values[0])
}

func elementComponentString(seg *Segment, elemIdx, compIdx int) string {
	if elemIdx < 0 || elemIdx >= len(seg.Elements) {
		return ""
	}
	elem := seg.Elements[elemIdx]
	if compIdx < 0 || compIdx >= len(elem.Values) {
		return ""
	}
	return string(elem.Values[compIdx])
}

// buildMessage finalizes one UNH..UNT (or best-effort, undelimited)
// span into a Document. Returns nil if no UNH is present.
func (p *Parser) buildMessage(segments []*Segment) *ir.Document {
	unh := findUNH(segments)
	if unh == nil {
		return nil
	}

	docType := elementComponentString(unh, 1, 0)
	release := elementComponentString(unh, 1, 1)
	versionNum := elementComponentString(unh, 1, 2)
	version := release
	if versionNum != "" {
		version = release + "_" + versionNum
	}
	msgRef := elementSimpleString(unh, 0)

	root := ir.NewGroup(ir.KindMessage, "MESSAGE")

	var body []*Segment
	inBody := false
	for _, s := range segments {
		if s.Tag == "UNH" {
			inBody = true
			continue
		}
		if s.Tag == "UNT" {
			break
		}
		if inBody {
			body = append(body, s)
		}
	}

	switch strings.ToUpper(docType) {
	case "ORDERS":
		groupSegments(root, body, "LIN", "LINE_ITEM")
	case "DESADV":
		groupSegments(root, body, "CPS", "PACKAGE")
	default:
		for _, s := range body {
			root.AddChild(s.ToNode())
		}
	}

	var refs []string
	if msgRef != "" {
		refs = append(refs, msgRef)
	}

	return &ir.Document{
		Root: root,
		Metadata: ir.DocumentMetadata{
			DocType:     docType,
			Version:     version,
			MessageRefs: refs,
		},
	}
}

// groupSegments appends body's segments to root, opening a new
// groupName segment-group child whenever openTag is seen and closing
// it on the next occurrence of openTag, "UNS", or end of input (UNT
// already being excluded from body by the caller).
func groupSegments(root *ir.Node, body []*Segment, openTag, groupName string) {
	var current *ir.Node
	for _, s := range body {
		switch {
		case s.Tag == openTag:
			current = ir.NewGroup(ir.KindSegmentGroup, groupName)
			current.AddChild(s.ToNode())
			root.AddChild(current)
		case s.Tag == "UNS":
			current = nil
			root.AddChild(s.ToNode())
		case current != nil:
			current.AddChild(s.ToNode())
		default:
			root.AddChild(s.ToNode())
		}
	}
}
