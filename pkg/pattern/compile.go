package pattern

import (
	"fmt"
	"strings"
)

// Compile parses text in notation n into a Pattern.
func Compile(text string, n Notation) (Pattern, error) {
	var (
		elems []Element
		err   error
	)
	switch n := n.(type) {
	case IDAStyle:
		elems, err = compileIDA(text, n)
	case CodeStyle:
		elems, err = compileCode(text, n)
	case HexString:
		elems, err = compileHex(text, n)
	default:
		return Pattern{}, fmt.Errorf("unsupported pattern notation %T", n)
	}
	if err != nil {
		return Pattern{}, err
	}
	if len(elems) == 0 {
		return Pattern{}, newError(ErrEmptyPattern, n, -1, "")
	}
	return Pattern{elems: elems}, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// package-level pattern literals.
func MustCompile(text string, n Notation) Pattern {
	p, err := Compile(text, n)
	if err != nil {
		panic(err)
	}
	return p
}

// FromCode builds a pattern from raw signature bytes and a mask string, as
// found in C/C++ and Go source ("\x48\x8B\x05\x00", "xxx?").
func FromCode(sig []byte, mask string) (Pattern, error) {
	n := CodeStyle{Mask: mask}
	wild := maskPositions(mask)
	if len(wild) != len(sig) {
		return Pattern{}, lengthMismatch(n, len(sig), len(wild))
	}
	if len(sig) == 0 {
		return Pattern{}, newError(ErrEmptyPattern, n, -1, "")
	}
	elems := make([]Element, len(sig))
	for i, b := range sig {
		if wild[i] {
			elems[i] = Wildcard
		} else {
			elems[i] = Byte(b)
		}
	}
	return Pattern{elems: elems}, nil
}

func compileIDA(text string, n IDAStyle) ([]Element, error) {
	tokens := strings.Fields(text)
	elems := make([]Element, 0, len(tokens))
	for i, tok := range tokens {
		if tok == "?" || tok == "??" {
			elems = append(elems, Wildcard)
			continue
		}
		if len(tok) != 2 {
			return nil, newError(ErrMalformedToken, n, i, tok)
		}
		hi, ok1 := hexValue(tok[0])
		lo, ok2 := hexValue(tok[1])
		if !ok1 || !ok2 {
			return nil, newError(ErrMalformedToken, n, i, tok)
		}
		elems = append(elems, Byte(hi<<4|lo))
	}
	return elems, nil
}

func compileCode(text string, n CodeStyle) ([]Element, error) {
	sig, err := unescape(text, n)
	if err != nil {
		return nil, err
	}
	wild := maskPositions(n.Mask)
	if len(sig) != len(wild) {
		return nil, lengthMismatch(n, len(sig), len(wild))
	}
	elems := make([]Element, len(sig))
	for i, b := range sig {
		if wild[i] {
			elems[i] = Wildcard
		} else {
			elems[i] = Byte(b)
		}
	}
	return elems, nil
}

func compileHex(text string, n HexString) ([]Element, error) {
	for i := 0; i < len(text); i++ {
		if _, ok := hexValue(text[i]); !ok && text[i] != '?' {
			return nil, newError(ErrInvalidHexDigit, n, i, text[i:i+1])
		}
	}
	if len(text)%2 != 0 {
		return nil, &Error{Kind: ErrOddLength, Notation: n, Pos: -1, Detail: fmt.Sprintf("%d digits", len(text))}
	}
	elems := make([]Element, 0, len(text)/2)
	for i := 0; i < len(text); i += 2 {
		pair := text[i : i+2]
		if pair == "??" {
			elems = append(elems, Wildcard)
			continue
		}
		hi, ok1 := hexValue(pair[0])
		lo, ok2 := hexValue(pair[1])
		if !ok1 || !ok2 {
			// half-byte wildcard such as "4?"
			return nil, newError(ErrInvalidHexDigit, n, i, pair)
		}
		elems = append(elems, Byte(hi<<4|lo))
	}
	return elems, nil
}

// unescape decodes a code-style literal. Whitespace separates nothing and is
// skipped; "\xHH" is a byte, "\\" a backslash, any other character itself.
func unescape(text string, n Notation) ([]byte, error) {
	out := make([]byte, 0, len(text)/4)
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case isSpace(c):
			i++
		case c != '\\':
			out = append(out, c)
			i++
		case i+1 < len(text) && text[i+1] == '\\':
			out = append(out, '\\')
			i += 2
		case i+3 < len(text) && (text[i+1] == 'x' || text[i+1] == 'X'):
			hi, ok1 := hexValue(text[i+2])
			lo, ok2 := hexValue(text[i+3])
			if !ok1 || !ok2 {
				return nil, newError(ErrMalformedToken, n, i, text[i:i+4])
			}
			out = append(out, hi<<4|lo)
			i += 4
		default:
			end := i + 4
			if end > len(text) {
				end = len(text)
			}
			return nil, newError(ErrMalformedToken, n, i, text[i:end])
		}
	}
	return out, nil
}

// maskPositions returns, per non-space mask character, whether it is a
// wildcard.
func maskPositions(mask string) []bool {
	wild := make([]bool, 0, len(mask))
	for i := 0; i < len(mask); i++ {
		c := mask[i]
		if isSpace(c) {
			continue
		}
		wild = append(wild, c == '?')
	}
	return wild
}

func lengthMismatch(n Notation, sigLen, maskLen int) *Error {
	return &Error{
		Kind:     ErrLengthMismatch,
		Notation: n,
		Pos:      -1,
		Detail:   fmt.Sprintf("%d bytes, %d mask positions", sigLen, maskLen),
	}
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
