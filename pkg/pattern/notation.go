package pattern

import (
	"fmt"
	"strings"
)

// Notation selects how Compile reads pattern text. The set of notations is
// closed: IDAStyle, CodeStyle and HexString.
type Notation interface {
	// Name returns the short name used in signature files and on the CLI.
	Name() string
	notation()
}

// IDAStyle reads whitespace-separated byte tokens: "48 8B ? ?? 05".
type IDAStyle struct{}

// CodeStyle reads a byte-escaped literal ("\x48\x8b\x00") paired with a mask
// such as "xx?" where '?' marks a wildcard and any other character a concrete
// byte. Whitespace in the mask is ignored.
type CodeStyle struct {
	Mask string
}

// HexString reads unseparated hex pairs with "??" wildcards: "488b????".
type HexString struct{}

func (IDAStyle) Name() string  { return "ida" }
func (CodeStyle) Name() string { return "code" }
func (HexString) Name() string { return "hex" }

func (IDAStyle) notation()  {}
func (CodeStyle) notation() {}
func (HexString) notation() {}

// ParseNotation maps a notation name to a Notation. The mask is only used
// by the code notation, which requires it.
func ParseNotation(name, mask string) (Notation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ida", "ida-style":
		return IDAStyle{}, nil
	case "code", "code-style":
		if mask == "" {
			return nil, fmt.Errorf("code notation requires a mask")
		}
		return CodeStyle{Mask: mask}, nil
	case "hex", "hex-string":
		return HexString{}, nil
	default:
		return nil, fmt.Errorf("unknown pattern notation: %s", name)
	}
}
