package pattern

import (
	"errors"
	"fmt"
)

// Compilation failures. Every error returned by this package wraps exactly
// one of these, so callers classify with errors.Is.
var (
	ErrEmptyPattern    = errors.New("pattern is empty")
	ErrMalformedToken  = errors.New("malformed token")
	ErrInvalidHexDigit = errors.New("invalid hex digit")
	ErrOddLength       = errors.New("odd number of hex digits")
	ErrLengthMismatch  = errors.New("signature and mask lengths differ")
)

// Error describes where compilation failed.
type Error struct {
	Kind     error    // one of the Err* sentinels
	Notation Notation // notation being compiled (nil for New)
	Pos      int      // token index or character offset, -1 if not applicable
	Token    string   // offending token, if any
	Detail   string   // extra context, e.g. the two lengths of a mismatch
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Notation != nil {
		msg = e.Notation.Name() + " pattern: " + msg
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Pos >= 0 {
		msg += fmt.Sprintf(" at position %d", e.Pos)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, n Notation, pos int, token string) *Error {
	return &Error{Kind: kind, Notation: n, Pos: pos, Token: token}
}
