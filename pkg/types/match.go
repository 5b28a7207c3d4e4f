package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Match is one occurrence of a signature in a blob.
type Match struct {
	BlobID        BlobID
	StructuralID  string // SHA-1(signature id, signature structural id, blob id, start, end)
	FindingID     string // SHA-1(signature id, signature structural id, wildcard bytes)
	SignatureID   string
	SignatureName string
	Location      Location
	Wildcards     []byte // bytes under the pattern's wildcard positions, in order
	Snippet       Snippet
}

// ComputeStructuralID derives an ID that is stable across rescans of the
// same blob. Signatures sharing a pattern get distinct IDs.
func (m *Match) ComputeStructuralID(sigID, sigStructuralID string) string {
	h := sha1.New()
	h.Write([]byte(sigID))
	h.Write([]byte{0})
	h.Write([]byte(sigStructuralID))
	h.Write([]byte{0})
	h.Write(m.BlobID[:])
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(m.Location.Offset.Start, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(m.Location.Offset.End, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
