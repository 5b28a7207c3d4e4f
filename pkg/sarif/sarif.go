package sarif

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI   = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version     = "2.1.0"
	ToolName    = "aobscan"
	ToolVersion = "0.1.0"
)

// Report is the top-level SARIF report structure
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single invocation of the tool
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule describes one signature.
type Rule struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ShortDescription ShortDescription `json:"shortDescription"`
	HelpURI          string           `json:"helpUri,omitempty"`
	Properties       *RuleProperties  `json:"properties,omitempty"`
}

// RuleProperties carries the pattern behind a rule.
type RuleProperties struct {
	Pattern string   `json:"pattern"`
	Section string   `json:"section,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ShortDescription contains rule description text
type ShortDescription struct {
	Text string `json:"text"`
}

// Result represents a single match
type Result struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             Message           `json:"message"`
	Locations           []Location        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          *ResultProperties `json:"properties,omitempty"`
}

// ResultProperties holds binary-specific details SARIF has no field for.
type ResultProperties struct {
	Section   string `json:"section,omitempty"`
	Address   string `json:"address,omitempty"`
	Arch      string `json:"arch,omitempty"`
	Wildcards string `json:"wildcards,omitempty"`
}

// Message contains the result message
type Message struct {
	Text string `json:"text"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies file location
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

// ArtifactLocation identifies the file
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region is a byte range within the artifact.
type Region struct {
	ByteOffset int64    `json:"byteOffset"`
	ByteLength int64    `json:"byteLength"`
	Snippet    *Snippet `json:"snippet,omitempty"`
}

// Snippet contains the matched bytes
type Snippet struct {
	Text   string `json:"text,omitempty"`
	Binary string `json:"binary,omitempty"`
}

// NewReport creates a new SARIF report with initialized structure
func NewReport() *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: ToolVersion,
						Rules:   []Rule{},
					},
				},
				Results: []Result{},
			},
		},
	}
}

// AddRule adds a signature as a rule
func (r *Report) AddRule(sig *types.Signature) {
	text := sig.Description
	if text == "" {
		text = sig.Name
	}
	rule := Rule{
		ID:               sig.ID,
		Name:             sig.Name,
		ShortDescription: ShortDescription{Text: text},
		Properties: &RuleProperties{
			Pattern: sig.Pattern,
			Section: sig.Section,
			Tags:    sig.Categories,
		},
	}
	if len(sig.References) > 0 {
		rule.HelpURI = sig.References[0]
	}

	r.Runs[0].Tool.Driver.Rules = append(r.Runs[0].Tool.Driver.Rules, rule)
}

// AddResult adds a match found in the artifact at filePath
func (r *Report) AddResult(match *types.Match, filePath string) {
	region := Region{
		ByteOffset: match.Location.Offset.Start,
		ByteLength: match.Location.Offset.Len(),
	}
	if len(match.Snippet.Matching) > 0 {
		region.Snippet = &Snippet{
			Text:   match.Snippet.Hex(),
			Binary: hex.EncodeToString(match.Snippet.Matching),
		}
	}

	text := match.SignatureName
	if text == "" {
		text = match.SignatureID
	}
	var props *ResultProperties
	if match.Location.InSection() {
		text = fmt.Sprintf("%s at %#x in %s", text, match.Location.Address, match.Location.Section)
		props = &ResultProperties{
			Section: match.Location.Section,
			Address: fmt.Sprintf("%#x", match.Location.Address),
			Arch:    match.Location.Arch,
		}
	}
	if len(match.Wildcards) > 0 {
		if props == nil {
			props = &ResultProperties{}
		}
		props.Wildcards = hex.EncodeToString(match.Wildcards)
	}

	result := Result{
		RuleID:  match.SignatureID,
		Level:   "note",
		Message: Message{Text: text},
		Locations: []Location{
			{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{URI: formatFileURI(filePath)},
					Region:           region,
				},
			},
		},
		Properties: props,
	}
	if match.FindingID != "" {
		result.PartialFingerprints = map[string]string{"findingId/v1": match.FindingID}
	}

	r.Runs[0].Results = append(r.Runs[0].Results, result)
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		path = filepath.ToSlash(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	return filepath.ToSlash(path)
}
