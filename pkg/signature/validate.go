package signature

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/praetorian-inc/aobscan/pkg/matcher"
	"github.com/praetorian-inc/aobscan/pkg/types"
)

// Validate checks required fields, that the pattern compiles, that a set
// StructuralID is current, and that every example matches and no negative
// example does.
func Validate(sig *types.Signature) error {
	if sig == nil {
		return fmt.Errorf("signature is nil")
	}
	if sig.ID == "" {
		return fmt.Errorf("signature ID is required")
	}
	if sig.Name == "" {
		return fmt.Errorf("signature %s: name is required", sig.ID)
	}
	if strings.TrimSpace(sig.Pattern) == "" {
		return fmt.Errorf("signature %s: pattern is required", sig.ID)
	}

	p, err := sig.Compile()
	if err != nil {
		return fmt.Errorf("signature %s: %w", sig.ID, err)
	}
	if want := types.PatternStructuralID(p); sig.StructuralID != "" && sig.StructuralID != want {
		return fmt.Errorf("signature %s has inconsistent StructuralID: got %s, expected %s",
			sig.ID, sig.StructuralID, want)
	}

	s, err := matcher.Build(p, matcher.SingleThreaded())
	if err != nil {
		return fmt.Errorf("signature %s: %w", sig.ID, err)
	}
	for i, ex := range sig.Examples {
		data, err := DecodeHex(ex)
		if err != nil {
			return fmt.Errorf("signature %s: example %d: %w", sig.ID, i, err)
		}
		if _, ok := s.FindFirst(data); !ok {
			return fmt.Errorf("signature %s: example %d does not match", sig.ID, i)
		}
	}
	for i, ex := range sig.NegativeExamples {
		data, err := DecodeHex(ex)
		if err != nil {
			return fmt.Errorf("signature %s: negative example %d: %w", sig.ID, i, err)
		}
		if off, ok := s.FindFirst(data); ok {
			return fmt.Errorf("signature %s: negative example %d matches at offset %d", sig.ID, i, off)
		}
	}
	return nil
}

// ValidateAll validates every signature and rejects duplicate IDs.
func ValidateAll(sigs []*types.Signature) error {
	seen := make(map[string]bool, len(sigs))
	for _, sig := range sigs {
		if err := Validate(sig); err != nil {
			return err
		}
		if seen[sig.ID] {
			return fmt.Errorf("duplicate signature ID: %s", sig.ID)
		}
		seen[sig.ID] = true
	}
	return nil
}

// DecodeHex decodes hex bytes, ignoring whitespace.
func DecodeHex(s string) ([]byte, error) {
	compact := strings.Join(strings.Fields(s), "")
	data, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes: %w", err)
	}
	return data, nil
}
