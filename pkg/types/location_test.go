package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffsetSpan_Len(t *testing.T) {
	assert.Equal(t, int64(7), OffsetSpan{Start: 10, End: 17}.Len())
}

func TestLocation_InSection(t *testing.T) {
	assert.False(t, Location{Offset: OffsetSpan{Start: 0, End: 4}}.InSection())
	assert.True(t, Location{Section: ".text"}.InSection())
}

func TestLocation_JSONOmitsEmptySectionFields(t *testing.T) {
	data, err := json.Marshal(Location{Offset: OffsetSpan{Start: 1, End: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Offset":{"Start":1,"End":2}}`, string(data))
}
