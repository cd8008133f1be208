// Package edifact implements the EDIFACT lexical layer (service-
// character discovery, segment/element/component scanning, release
// escaping, empty-slot preservation) and the parser that assembles
// lexed segments into per-message ir.Document values.
package edifact

// Separators holds the five service characters that delimit an
// EDIFACT interchange. The zero value is not valid; use
// DefaultSeparators.
type Separators struct {
	Component byte
	Element   byte
	Decimal   byte
	Release   byte
	Segment   byte
}

// DefaultSeparators returns the standard EDIFACT separator set used
// when no UNA service-string-advice segment is present.
func DefaultSeparators() Separators {
	return Separators{
		Component: ':',
		Element:   '+',
		Decimal:   '.',
		Release:   '?',
		Segment:   '\'',
	}
}

// parseUNA reads the nine-byte UNA prefix (the 3-byte tag plus six
// service characters in component, element, decimal, release,
// reserved, segment order) and reports the configured separators. The
// reserved sixth byte is read but unused. ok is false if buf is
// shorter than nine bytes or does not start with "UNA".
func parseUNA(buf []byte) (Separators, bool) {
	if len(buf) < 9 || string(buf[0:3]) != "UNA" {
		return Separators{}, false
	}
	return Separators{
		Component: buf[3],
		Element:   buf[4],
		Decimal:   buf[5],
		Release:   buf[6],
		Segment:   buf[8],
	}, true
}
