package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_ComputeStructuralID(t *testing.T) {
	blobID := ComputeBlobID([]byte{0x4D, 0x5A, 0x90, 0x00})

	match := Match{
		BlobID:   blobID,
		Location: Location{Offset: OffsetSpan{Start: 10, End: 17}},
	}
	id := match.ComputeStructuralID("aob.rip", "sig_struct_id")
	assert.Len(t, id, 40)

	same := Match{
		BlobID:      blobID,
		SignatureID: "other metadata is ignored",
		Location:    Location{Offset: OffsetSpan{Start: 10, End: 17}, Section: ".text"},
	}
	assert.Equal(t, id, same.ComputeStructuralID("aob.rip", "sig_struct_id"))

	moved := Match{
		BlobID:   blobID,
		Location: Location{Offset: OffsetSpan{Start: 11, End: 18}},
	}
	assert.NotEqual(t, id, moved.ComputeStructuralID("aob.rip", "sig_struct_id"))
	assert.NotEqual(t, id, match.ComputeStructuralID("aob.rip", "other_sig"))

	// same pattern under another signature
	assert.NotEqual(t, id, match.ComputeStructuralID("aob.rip-hex", "sig_struct_id"))

	otherBlob := Match{
		BlobID:   ComputeBlobID([]byte("other")),
		Location: Location{Offset: OffsetSpan{Start: 10, End: 17}},
	}
	assert.NotEqual(t, id, otherBlob.ComputeStructuralID("aob.rip", "sig_struct_id"))
}
