package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edicraft/edipipe/edifact"
	"github.com/edicraft/edipipe/ir"
)

// jsonValue is the canonical wire shape for an ir.Value: the variant
// name plus its payload, letting Null round-trip distinctly from an
// absent field.
type jsonValue struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

func valueToJSON(v ir.Value) jsonValue {
	switch v.Kind() {
	case ir.KindNull:
		return jsonValue{Kind: "null"}
	case ir.KindString:
		s, _ := v.AsString()
		return jsonValue{Kind: "string", Value: s}
	case ir.KindInteger:
		i, _ := v.AsInteger()
		return jsonValue{Kind: "integer", Value: i}
	case ir.KindDecimal:
		d, _ := v.AsDecimal()
		return jsonValue{Kind: "decimal", Value: d}
	case ir.KindBoolean:
		b, _ := v.AsBoolean()
		return jsonValue{Kind: "boolean", Value: b}
	case ir.KindDate:
		s, _ := v.AsString()
		return jsonValue{Kind: "date", Value: s}
	case ir.KindTime:
		s, _ := v.AsString()
		return jsonValue{Kind: "time", Value: s}
	case ir.KindDateTime:
		s, _ := v.AsString()
		return jsonValue{Kind: "datetime", Value: s}
	case ir.KindBinary:
		b, _ := v.AsBinary()
		return jsonValue{Kind: "binary", Value: b}
	default:
		return jsonValue{Kind: "null"}
	}
}

type jsonNode struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Value    *jsonValue  `json:"value,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func nodeToJSON(n *ir.Node) *jsonNode {
	if n == nil {
		return nil
	}
	out := &jsonNode{Name: n.Name, Kind: n.NodeKind.String()}
	if v, ok := n.Value(); ok {
		jv := valueToJSON(v)
		out.Value = &jv
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, nodeToJSON(child))
	}
	return out
}

type jsonDocument struct {
	DocType     string      `json:"doc_type,omitempty"`
	Version     string      `json:"version,omitempty"`
	MessageRefs []string    `json:"message_refs,omitempty"`
	Root        *jsonNode   `json:"root"`
}

func toJSONDocument(doc *ir.Document) *jsonDocument {
	return &jsonDocument{
		DocType:     doc.Metadata.DocType,
		Version:     doc.Metadata.Version,
		MessageRefs: doc.Metadata.MessageRefs,
		Root:        nodeToJSON(doc.Root),
	}
}

// canonicalJSON serializes doc to its compact canonical JSON form,
// used as the quarantine payload and as the Json output format's
// source when no mapper replaces it.
func canonicalJSON(doc *ir.Document) ([]byte, error) {
	return json.Marshal(toJSONDocument(doc))
}

func prettyJSON(doc *ir.Document) ([]byte, error) {
	return json.MarshalIndent(toJSONDocument(doc), "", "  ")
}

// renderOutput renders doc in the requested format.
func renderOutput(format OutputFormat, doc *ir.Document) ([]byte, error) {
	switch format {
	case Json:
		return prettyJSON(doc)
	case Csv:
		return []byte(serializeCSV(doc)), nil
	case Xml:
		return []byte(serializeXML(doc)), nil
	case Edifact:
		return serializeEdifact(doc)
	default:
		return nil, fmt.Errorf("pipeline: unknown output format %v", format)
	}
}

func serializeCSV(doc *ir.Document) string {
	var rows [][3]string
	collectRows(doc.Root, &rows)

	var b strings.Builder
	b.WriteString("name,node_type,value\n")
	for _, row := range rows {
		b.WriteString(escapeCSVField(row[0]))
		b.WriteByte(',')
		b.WriteString(escapeCSVField(row[1]))
		b.WriteByte(',')
		b.WriteString(escapeCSVField(row[2]))
		b.WriteByte('\n')
	}
	return b.String()
}

func collectRows(n *ir.Node, rows *[][3]string) {
	value := ""
	if v, ok := n.Value(); ok {
		value = v.DisplayString("")
	}
	*rows = append(*rows, [3]string{n.Name, n.NodeKind.String(), value})
	for _, child := range n.Children {
		collectRows(child, rows)
	}
}

func escapeCSVField(value string) string {
	if strings.ContainsAny(value, ",\"\n") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

func serializeXML(doc *ir.Document) string {
	var b strings.Builder
	b.WriteString("<document>")
	appendNodeXML(doc.Root, &b)
	b.WriteString("</document>")
	return b.String()
}

func appendNodeXML(n *ir.Node, b *strings.Builder) {
	name := sanitizeXMLName(n.Name)
	b.WriteByte('<')
	b.WriteString(name)
	b.WriteByte('>')

	if v, ok := n.Value(); ok {
		b.WriteString(xmlEscape(v.DisplayString("")))
	}
	for _, child := range n.Children {
		appendNodeXML(child, b)
	}

	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}

func sanitizeXMLName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "item"
	}

	var b strings.Builder
	b.Grow(len(trimmed) + 1)
	for i, ch := range trimmed {
		if (i == 0 && isXMLNameStart(ch)) || (i > 0 && isXMLNameChar(ch)) {
			b.WriteRune(ch)
		} else {
			b.WriteByte('_')
		}
	}

	sanitized := b.String()
	if len(sanitized) >= 3 && strings.EqualFold(sanitized[:3], "xml") {
		sanitized = "_" + sanitized
	}
	return sanitized
}

func isXMLNameStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isXMLNameChar(ch rune) bool {
	return isXMLNameStart(ch) || (ch >= '0' && ch <= '9') || ch == '-' || ch == '.'
}

func xmlEscape(value string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(value)
}

func serializeEdifact(doc *ir.Document) ([]byte, error) {
	if doc.Root == nil || len(doc.Root.Children) == 0 {
		return nil, fmt.Errorf("pipeline: cannot serialize document without segment nodes")
	}
	return []byte(edifact.Serialize(doc.Root, edifact.DefaultSeparators())), nil
}
