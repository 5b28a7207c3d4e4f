package types

import (
	"crypto/sha1"
	"encoding/hex"
)

// Finding groups the matches of one signature whose wildcard bytes are
// identical, e.g. every call site of the same relative target.
type Finding struct {
	ID          string
	SignatureID string
	Wildcards   []byte
	Matches     []*Match
}

// ComputeFindingID returns SHA-1(sigID + '\0' + sigStructuralID + '\0' +
// hex(wildcards)).
func ComputeFindingID(sigID, sigStructuralID string, wildcards []byte) string {
	h := sha1.New()
	h.Write([]byte(sigID))
	h.Write([]byte{0})
	h.Write([]byte(sigStructuralID))
	h.Write([]byte{0})
	h.Write([]byte(hex.EncodeToString(wildcards)))
	return hex.EncodeToString(h.Sum(nil))
}
