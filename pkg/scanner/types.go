package scanner

import "github.com/praetorian-inc/aobscan/pkg/types"

// ContentItem is one buffer submitted for scanning. Content is base64 in
// JSON.
type ContentItem struct {
	Source   string            `json:"source"`   // e.g. "pid:4242:0x7ff6a0000000"
	Content  []byte            `json:"content"`  // the bytes to scan
	Metadata map[string]string `json:"metadata"` // optional metadata
}

// ScanResult represents scan results for a single item
type ScanResult struct {
	Source  string         `json:"source"`
	BlobID  types.BlobID   `json:"blob_id"`
	Matches []*types.Match `json:"matches"`
}

// BatchScanResult represents batch scan results
type BatchScanResult struct {
	Results []ScanResult `json:"results"`
	Total   int          `json:"total"`
}
