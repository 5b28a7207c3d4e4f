package sarif

import (
	"encoding/json"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport(t *testing.T) {
	report := NewReport()

	assert.Equal(t, SchemaURI, report.Schema)
	assert.Equal(t, Version, report.Version)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, ToolName, report.Runs[0].Tool.Driver.Name)
	assert.Equal(t, ToolVersion, report.Runs[0].Tool.Driver.Version)
}

func TestAddRule(t *testing.T) {
	report := NewReport()

	report.AddRule(&types.Signature{
		ID:          "aob.x64.prologue.1",
		Name:        "x64 frame prologue",
		Pattern:     "55 48 89 E5",
		Description: "push rbp; mov rbp, rsp",
		Section:     ".text",
		References:  []string{"https://www.felixcloutier.com/x86/push"},
		Categories:  []string{"x64"},
	})

	require.Len(t, report.Runs[0].Tool.Driver.Rules, 1)
	rule := report.Runs[0].Tool.Driver.Rules[0]
	assert.Equal(t, "aob.x64.prologue.1", rule.ID)
	assert.Equal(t, "x64 frame prologue", rule.Name)
	assert.Equal(t, "push rbp; mov rbp, rsp", rule.ShortDescription.Text)
	assert.Equal(t, "https://www.felixcloutier.com/x86/push", rule.HelpURI)
	require.NotNil(t, rule.Properties)
	assert.Equal(t, "55 48 89 E5", rule.Properties.Pattern)
	assert.Equal(t, ".text", rule.Properties.Section)
	assert.Equal(t, []string{"x64"}, rule.Properties.Tags)
}

func TestAddRule_DescriptionFallsBackToName(t *testing.T) {
	report := NewReport()
	report.AddRule(&types.Signature{ID: "s", Name: "Some signature", Pattern: "90"})

	assert.Equal(t, "Some signature", report.Runs[0].Tool.Driver.Rules[0].ShortDescription.Text)
}

func TestAddResult(t *testing.T) {
	report := NewReport()

	match := &types.Match{
		SignatureID:   "aob.x64.rip-load.1",
		SignatureName: "RIP-relative load",
		FindingID:     "abc123",
		Location: types.Location{
			Offset: types.OffsetSpan{Start: 100, End: 107},
		},
		Wildcards: []byte{0x10, 0x20, 0x30, 0x40},
		Snippet: types.Snippet{
			Before:   []byte{0x55},
			Matching: []byte{0x48, 0x8B, 0x05, 0x10, 0x20, 0x30, 0x40},
		},
	}
	report.AddResult(match, "/bin/target")

	require.Len(t, report.Runs[0].Results, 1)
	result := report.Runs[0].Results[0]
	assert.Equal(t, "aob.x64.rip-load.1", result.RuleID)
	assert.Equal(t, "note", result.Level)
	assert.Equal(t, "RIP-relative load", result.Message.Text)
	assert.Equal(t, "abc123", result.PartialFingerprints["findingId/v1"])

	loc := result.Locations[0].PhysicalLocation
	assert.Equal(t, "file:///bin/target", loc.ArtifactLocation.URI)
	assert.Equal(t, int64(100), loc.Region.ByteOffset)
	assert.Equal(t, int64(7), loc.Region.ByteLength)
	require.NotNil(t, loc.Region.Snippet)
	assert.Equal(t, "55 [488b0510203040]", loc.Region.Snippet.Text)
	assert.Equal(t, "488b0510203040", loc.Region.Snippet.Binary)

	require.NotNil(t, result.Properties)
	assert.Equal(t, "10203040", result.Properties.Wildcards)
	assert.Empty(t, result.Properties.Section)
}

func TestAddResult_Section(t *testing.T) {
	report := NewReport()

	match := &types.Match{
		SignatureID:   "aob.x64.prologue.1",
		SignatureName: "x64 frame prologue",
		Location: types.Location{
			Offset:        types.OffsetSpan{Start: 0x1010, End: 0x1014},
			Section:       "__text",
			SectionOffset: 0x10,
			Address:       0x100001010,
			Arch:          "arm64",
		},
	}
	report.AddResult(match, "bin/universal")

	result := report.Runs[0].Results[0]
	assert.Equal(t, "x64 frame prologue at 0x100001010 in __text", result.Message.Text)
	assert.Equal(t, "bin/universal", result.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Nil(t, result.Locations[0].PhysicalLocation.Region.Snippet)
	require.NotNil(t, result.Properties)
	assert.Equal(t, "__text", result.Properties.Section)
	assert.Equal(t, "0x100001010", result.Properties.Address)
	assert.Equal(t, "arm64", result.Properties.Arch)
	assert.Nil(t, result.PartialFingerprints)
}

func TestToJSON(t *testing.T) {
	report := NewReport()
	report.AddRule(&types.Signature{ID: "s", Name: "S", Pattern: "C3"})
	report.AddResult(&types.Match{
		SignatureID: "s",
		Location:    types.Location{Offset: types.OffsetSpan{Start: 4, End: 5}},
		Snippet:     types.Snippet{Matching: []byte{0xC3}},
	}, "/test/file.bin")

	jsonBytes, err := report.ToJSON()
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(jsonBytes, &parsed))
	assert.Equal(t, SchemaURI, parsed["$schema"])
	assert.Equal(t, Version, parsed["version"])

	runs := parsed["runs"].([]any)
	results := runs[0].(map[string]any)["results"].([]any)
	result := results[0].(map[string]any)
	assert.Equal(t, "s", result["message"].(map[string]any)["text"])
	assert.NotContains(t, result, "properties")
}

func TestRelativePathConversion(t *testing.T) {
	report := NewReport()
	match := &types.Match{SignatureID: "test"}

	report.AddResult(match, "/absolute/path/file.bin")
	assert.Equal(t, "file:///absolute/path/file.bin", report.Runs[0].Results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)

	report.AddResult(match, "relative/path/file.bin")
	assert.Equal(t, "relative/path/file.bin", report.Runs[0].Results[1].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}
