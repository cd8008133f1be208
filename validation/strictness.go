// Package validation walks a Document against an (optional) schema
// plus a generic rule library, collecting issues and gating overall
// pass/fail by a configured strictness level.
package validation

import "github.com/edicraft/edipipe/internal/severity"

// Strictness determines whether a given issue severity counts as a failure.
type Strictness int

const (
	// Moderate (the default) fails on Error/Critical only.
	Moderate Strictness = iota
	// Strict fails on any issue, including Warning/Info.
	Strict
	// Lenient never fails from warnings or below.
	Lenient
)

// Fails reports whether sev should cause the document to be marked
// invalid under s. Strict fails on anything; Moderate fails on
// Error/Critical; Lenient fails on Critical only, never on a warning.
func (s Strictness) Fails(sev severity.Severity) bool {
	switch s {
	case Strict:
		return true
	case Lenient:
		return sev == severity.SeverityCritical
	default: // Moderate
		return sev == severity.SeverityError || sev == severity.SeverityCritical
	}
}
