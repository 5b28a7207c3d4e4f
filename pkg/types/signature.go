package types

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/praetorian-inc/aobscan/pkg/pattern"
)

// Signature is a named AOB pattern with metadata.
type Signature struct {
	ID               string   // e.g. "aob.x64.prologue.1"
	Name             string   // human-readable name
	Pattern          string   // pattern text in Notation
	Notation         string   // "ida" (default), "code" or "hex"
	Mask             string   // code notation only
	StructuralID     string   // SHA-1 of the canonical pattern text (computed)
	Description      string   // optional
	Section          string   // restrict scans to this object file section, if set
	Examples         []string // hex byte strings that must match
	NegativeExamples []string // hex byte strings that must not match
	References       []string
	Categories       []string
}

// Compile parses the signature's pattern in its notation.
func (s *Signature) Compile() (pattern.Pattern, error) {
	n, err := pattern.ParseNotation(s.Notation, s.Mask)
	if err != nil {
		return pattern.Pattern{}, err
	}
	return pattern.Compile(s.Pattern, n)
}

// ComputeStructuralID hashes the canonical IDA-style text of the compiled
// pattern, so the same bytes written in any notation share one ID.
func (s *Signature) ComputeStructuralID() (string, error) {
	p, err := s.Compile()
	if err != nil {
		return "", err
	}
	return PatternStructuralID(p), nil
}

// PatternStructuralID hashes p's canonical text.
func PatternStructuralID(p pattern.Pattern) string {
	sum := sha1.Sum([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}
