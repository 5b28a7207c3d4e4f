package types

import "encoding/hex"

// Snippet holds the matched bytes and the bytes around them.
type Snippet struct {
	Before   []byte
	Matching []byte
	After    []byte
}

// Hex renders the snippet as lowercase hex with the match bracketed,
// e.g. "5548 [89e5] c3".
func (s Snippet) Hex() string {
	out := hex.EncodeToString(s.Before)
	if out != "" {
		out += " "
	}
	out += "[" + hex.EncodeToString(s.Matching) + "]"
	if len(s.After) > 0 {
		out += " " + hex.EncodeToString(s.After)
	}
	return out
}
