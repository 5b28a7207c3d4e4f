// Package scanner runs a set of signatures over blobs and records the
// results.
package scanner

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/praetorian-inc/aobscan/pkg/matcher"
	"github.com/praetorian-inc/aobscan/pkg/prefilter"
	"github.com/praetorian-inc/aobscan/pkg/section"
	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/praetorian-inc/aobscan/pkg/store"
	"github.com/praetorian-inc/aobscan/pkg/types"
)

// DefaultContextBytes is the snippet context kept on each side of a match.
const DefaultContextBytes = 16

// Config configures a Core.
type Config struct {
	// Threads is the worker configuration of every signature's scanner.
	Threads matcher.ThreadConfig

	// Store receives blobs, matches and findings. Nil keeps nothing.
	Store store.Store

	// MaxMatchesPerSignature stops scanning a blob for a signature once
	// this many matches were found (0 = no limit).
	MaxMatchesPerSignature int

	// ContextBytes is the snippet context on each side of a match.
	ContextBytes int

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// DefaultConfig returns a single-threaded configuration without a store.
func DefaultConfig() Config {
	return Config{
		Threads:      matcher.SingleThreaded(),
		ContextBytes: DefaultContextBytes,
	}
}

// compiledSignature pairs a signature with its built scanner.
type compiledSignature struct {
	sig     *types.Signature
	scanner *matcher.Scanner
}

// Core scans blobs against a fixed signature set. It is safe for concurrent
// use.
type Core struct {
	sigs      map[*types.Signature]*compiledSignature
	ordered   []*compiledSignature
	prefilter *prefilter.Prefilter
	config    Config
	logger    *log.Logger
}

var (
	cachedBuiltin    []*types.Signature
	cachedBuiltinErr error
	builtinOnce      sync.Once
)

// BuiltinSignatures returns the built-in signatures, loaded once per process.
func BuiltinSignatures() ([]*types.Signature, error) {
	builtinOnce.Do(func() {
		cachedBuiltin, cachedBuiltinErr = signature.NewLoader().LoadBuiltinSignatures()
	})
	return cachedBuiltin, cachedBuiltinErr
}

// NewCore compiles every signature and records them in the store, if any.
func NewCore(sigs []*types.Signature, config Config) (*Core, error) {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Core{
		sigs:    make(map[*types.Signature]*compiledSignature, len(sigs)),
		ordered: make([]*compiledSignature, 0, len(sigs)),
		config:  config,
		logger:  logger,
	}
	for _, sig := range sigs {
		p, err := sig.Compile()
		if err != nil {
			return nil, fmt.Errorf("signature %s: %w", sig.ID, err)
		}
		s, err := matcher.Build(p, config.Threads)
		if err != nil {
			return nil, fmt.Errorf("signature %s: %w", sig.ID, err)
		}
		if sig.StructuralID == "" {
			sig.StructuralID = types.PatternStructuralID(p)
		}

		cs := &compiledSignature{sig: sig, scanner: s}
		c.sigs[sig] = cs
		c.ordered = append(c.ordered, cs)

		if config.Store != nil {
			if err := config.Store.AddSignature(sig); err != nil {
				return nil, fmt.Errorf("recording signature %s: %w", sig.ID, err)
			}
		}
	}
	c.prefilter = prefilter.New(sigs)

	logger.Debug("scanner ready", "signatures", len(c.ordered), "anchors", c.prefilter.Len(), "threads", config.Threads.Threads())
	return c, nil
}

// Signatures returns the signatures in the order they were given.
func (c *Core) Signatures() []*types.Signature {
	out := make([]*types.Signature, len(c.ordered))
	for i, cs := range c.ordered {
		out[i] = cs.sig
	}
	return out
}

// hit is one raw match before it becomes a types.Match.
type hit struct {
	offset int
	loc    section.Match
	inSect bool
}

// ScanBlob scans content with every signature that passes the prefilter and
// returns the matches ordered by offset, then signature ID. When a store is
// configured the blob, its provenance, the matches and their findings are
// recorded. prov may be nil.
func (c *Core) ScanBlob(content []byte, blobID types.BlobID, prov types.Provenance) ([]*types.Match, error) {
	candidates := c.prefilter.Filter(content)

	var matches []*types.Match
	for _, sig := range candidates {
		cs := c.sigs[sig]
		hits, err := c.scanSignature(cs, content)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			matches = append(matches, c.newMatch(cs, content, blobID, h))
		}
	}
	slices.SortFunc(matches, func(a, b *types.Match) int {
		return cmp.Or(
			cmp.Compare(a.Location.Offset.Start, b.Location.Offset.Start),
			cmp.Compare(a.SignatureID, b.SignatureID),
		)
	})

	c.logger.Debug("scanned blob", "blob", blobID.Hex(), "size", len(content),
		"candidates", len(candidates), "matches", len(matches))

	if c.config.Store != nil {
		if err := c.persist(content, blobID, prov, matches); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

// scanSignature returns the hits of one signature. Signatures restricted to
// a section scan the whole buffer when it is not an object file, and find
// nothing when the section is absent or has no file data.
func (c *Core) scanSignature(cs *compiledSignature, content []byte) ([]hit, error) {
	var (
		mu   sync.Mutex
		hits []hit
	)
	limit := c.config.MaxMatchesPerSignature
	add := func(h hit) bool {
		mu.Lock()
		defer mu.Unlock()
		if limit > 0 && len(hits) >= limit {
			return true
		}
		hits = append(hits, h)
		return limit > 0 && len(hits) >= limit
	}

	if name := cs.sig.Section; name != "" {
		_, err := section.Scan(cs.scanner, content, name, func(m section.Match) bool {
			return add(hit{offset: m.RawOffset, loc: m, inSect: true})
		})
		switch {
		case err == nil:
			return hits, nil
		case errors.Is(err, section.ErrInvalidObject):
			c.logger.Debug("not an object file, scanning whole blob", "signature", cs.sig.ID)
		case errors.Is(err, section.ErrNotFound), errors.Is(err, section.ErrNoData):
			c.logger.Debug("section unavailable", "signature", cs.sig.ID, "section", name, "err", err)
			return nil, nil
		default:
			return nil, fmt.Errorf("signature %s: %w", cs.sig.ID, err)
		}
	}

	cs.scanner.Scan(content, func(off int) bool {
		return add(hit{offset: off})
	})
	return hits, nil
}

func (c *Core) newMatch(cs *compiledSignature, content []byte, blobID types.BlobID, h hit) *types.Match {
	p := cs.scanner.Pattern()
	start, end := h.offset, h.offset+p.Len()

	m := &types.Match{
		BlobID:        blobID,
		SignatureID:   cs.sig.ID,
		SignatureName: cs.sig.Name,
		Location: types.Location{
			Offset: types.OffsetSpan{Start: int64(start), End: int64(end)},
		},
		Wildcards: p.WildcardBytes(content, start),
		Snippet:   types.Snippet{Matching: bytes.Clone(content[start:end])},
	}
	if h.inSect {
		m.Location.Section = cs.sig.Section
		m.Location.SectionOffset = int64(h.loc.SectionOffset)
		m.Location.Address = h.loc.Address()
		m.Location.Arch = h.loc.Arch
	}
	if n := c.config.ContextBytes; n > 0 {
		m.Snippet.Before, m.Snippet.After = matcher.ExtractContext(content, start, end, n)
	}
	m.StructuralID = m.ComputeStructuralID(cs.sig.ID, cs.sig.StructuralID)
	m.FindingID = types.ComputeFindingID(cs.sig.ID, cs.sig.StructuralID, m.Wildcards)
	return m
}

func (c *Core) persist(content []byte, blobID types.BlobID, prov types.Provenance, matches []*types.Match) error {
	s := c.config.Store
	if err := s.AddBlob(blobID, int64(len(content))); err != nil {
		return err
	}
	if prov != nil {
		if err := s.AddProvenance(blobID, prov); err != nil {
			return err
		}
	}
	for _, m := range matches {
		if err := s.AddMatch(m); err != nil {
			return err
		}
	}
	for _, f := range GroupFindings(matches) {
		if err := s.AddFinding(f); err != nil {
			return err
		}
	}
	return nil
}

// Scan scans content submitted without a file, recording source as its
// provenance.
func (c *Core) Scan(content []byte, source string) (*ScanResult, error) {
	blobID := types.ComputeBlobID(content)
	prov := types.ExtendedProvenance{Payload: map[string]any{"source": source}}

	matches, err := c.ScanBlob(content, blobID, prov)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []*types.Match{}
	}
	return &ScanResult{Source: source, BlobID: blobID, Matches: matches}, nil
}

// ScanBatch scans multiple content items. Items that fail to scan are
// logged and skipped.
func (c *Core) ScanBatch(items []ContentItem) (*BatchScanResult, error) {
	results := make([]ScanResult, 0, len(items))
	total := 0

	for _, item := range items {
		result, err := c.Scan(item.Content, item.Source)
		if err != nil {
			c.logger.Warn("scan failed", "source", item.Source, "err", err)
			continue
		}
		results = append(results, *result)
		total += len(result.Matches)
	}

	return &BatchScanResult{Results: results, Total: total}, nil
}

// Close releases the store, if any.
func (c *Core) Close() error {
	if c.config.Store != nil {
		return c.config.Store.Close()
	}
	return nil
}
