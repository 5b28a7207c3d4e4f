// Package prefilter narrows the signatures worth scanning for in a blob by
// looking for each pattern's longest run of concrete bytes first.
package prefilter

import (
	"github.com/cloudflare/ahocorasick"
	"github.com/praetorian-inc/aobscan/pkg/types"
)

// MinAnchorLen is the shortest concrete run used as an anchor. Patterns
// whose longest run is shorter are always scanned.
const MinAnchorLen = 2

// Prefilter uses Aho-Corasick over the anchors of every signature.
type Prefilter struct {
	matcher      *ahocorasick.Matcher
	anchors      [][]byte                      // anchor at each dictionary index
	anchorSigs   map[string][]*types.Signature // anchor -> signatures needing it
	noAnchorSigs []*types.Signature            // always checked
}

// New builds a prefilter. Signatures whose pattern does not compile are
// treated as anchorless; the scanner reports their compile error.
func New(sigs []*types.Signature) *Prefilter {
	pf := &Prefilter{
		anchorSigs:   make(map[string][]*types.Signature),
		noAnchorSigs: make([]*types.Signature, 0),
	}

	for _, sig := range sigs {
		anchor := Anchor(sig)
		if anchor == nil {
			pf.noAnchorSigs = append(pf.noAnchorSigs, sig)
			continue
		}
		key := string(anchor)
		if _, ok := pf.anchorSigs[key]; !ok {
			pf.anchors = append(pf.anchors, anchor)
		}
		pf.anchorSigs[key] = append(pf.anchorSigs[key], sig)
	}

	if len(pf.anchors) > 0 {
		pf.matcher = ahocorasick.NewMatcher(pf.anchors)
	}
	return pf
}

// Anchor returns the longest concrete run of sig's pattern, or nil when it
// is shorter than MinAnchorLen.
func Anchor(sig *types.Signature) []byte {
	p, err := sig.Compile()
	if err != nil {
		return nil
	}
	run, _ := p.LongestRun()
	if len(run) < MinAnchorLen {
		return nil
	}
	return run
}

// Filter returns the signatures that might match content: those whose
// anchor occurs in it, plus every anchorless signature. It is safe for
// concurrent use.
func (pf *Prefilter) Filter(content []byte) []*types.Signature {
	result := make([]*types.Signature, 0, len(pf.noAnchorSigs))
	result = append(result, pf.noAnchorSigs...)

	if pf.matcher == nil {
		return result
	}

	seen := make(map[*types.Signature]bool)
	for _, hit := range pf.matcher.MatchThreadSafe(content) {
		for _, sig := range pf.anchorSigs[string(pf.anchors[hit])] {
			if !seen[sig] {
				seen[sig] = true
				result = append(result, sig)
			}
		}
	}
	return result
}

// Len returns the number of distinct anchors.
func (pf *Prefilter) Len() int {
	return len(pf.anchors)
}
