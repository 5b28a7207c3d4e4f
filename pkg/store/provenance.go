package store

import (
	"encoding/json"
	"fmt"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// provenanceRow is the flattened form of a Provenance.
type provenanceRow struct {
	kind        string
	path        string
	archivePath string
	memberPath  string
	payloadJSON string
}

func encodeProvenance(prov types.Provenance) (provenanceRow, error) {
	row := provenanceRow{kind: prov.Kind()}
	switch p := prov.(type) {
	case types.FileProvenance:
		row.path = p.FilePath
	case types.ArchiveProvenance:
		row.path = p.Path()
		row.archivePath = p.ArchivePath
		row.memberPath = p.MemberPath
	case types.ExtendedProvenance:
		row.path = p.Path()
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return row, fmt.Errorf("marshaling provenance payload: %w", err)
		}
		row.payloadJSON = string(payload)
	default:
		return row, fmt.Errorf("unknown provenance type: %T", prov)
	}
	return row, nil
}

func decodeProvenance(row provenanceRow) (types.Provenance, error) {
	switch row.kind {
	case "file":
		return types.FileProvenance{FilePath: row.path}, nil
	case "archive":
		return types.ArchiveProvenance{ArchivePath: row.archivePath, MemberPath: row.memberPath}, nil
	case "extended":
		var payload map[string]any
		if row.payloadJSON != "" {
			if err := json.Unmarshal([]byte(row.payloadJSON), &payload); err != nil {
				return nil, fmt.Errorf("unmarshaling provenance payload: %w", err)
			}
		}
		return types.ExtendedProvenance{Payload: payload}, nil
	}
	return nil, fmt.Errorf("unknown provenance type: %s", row.kind)
}
