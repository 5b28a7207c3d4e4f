package scanner

import (
	"cmp"
	"slices"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// GroupFindings groups matches by FindingID: one finding per signature and
// distinct wildcard bytes. Findings are ordered by signature ID, then by
// their first match's offset.
func GroupFindings(matches []*types.Match) []*types.Finding {
	byID := make(map[string]*types.Finding)
	var findings []*types.Finding
	for _, m := range matches {
		f, ok := byID[m.FindingID]
		if !ok {
			f = &types.Finding{ID: m.FindingID, SignatureID: m.SignatureID, Wildcards: m.Wildcards}
			byID[m.FindingID] = f
			findings = append(findings, f)
		}
		f.Matches = append(f.Matches, m)
	}

	slices.SortStableFunc(findings, func(a, b *types.Finding) int {
		return cmp.Or(
			cmp.Compare(a.SignatureID, b.SignatureID),
			cmp.Compare(a.Matches[0].Location.Offset.Start, b.Matches[0].Location.Offset.Start),
		)
	})
	return findings
}
