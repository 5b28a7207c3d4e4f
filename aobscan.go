// Package aobscan finds array-of-bytes signatures, byte patterns with
// wildcards, in memory buffers, files and binaries.
//
// # Basic Usage
//
// Compile a pattern and scan a buffer:
//
//	p, err := aobscan.Compile("48 8B 05 ? ? ? ? 48 85 C0", aobscan.IDAStyle{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s := aobscan.MustBuild(p, aobscan.AllAvailableThreads())
//
//	s.Scan(data, func(off int) bool {
//	    fmt.Printf("match at %#x\n", off)
//	    return false // keep going
//	})
//
// # Signature Sets
//
// Scan with the built-in signatures, or your own, and get matches with
// snippets, wildcard bytes and finding IDs:
//
//	scanner, err := aobscan.NewSignatureScanner()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scanner.Close()
//
//	matches, err := scanner.ScanFile("/usr/bin/ls")
//	for _, m := range matches {
//	    fmt.Printf("%s at %#x\n", m.SignatureName, m.Location.Offset.Start)
//	}
package aobscan

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/praetorian-inc/aobscan/pkg/enum"
	"github.com/praetorian-inc/aobscan/pkg/matcher"
	"github.com/praetorian-inc/aobscan/pkg/pattern"
	"github.com/praetorian-inc/aobscan/pkg/scanner"
	"github.com/praetorian-inc/aobscan/pkg/section"
	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/praetorian-inc/aobscan/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/aobscan" without subpackages.
type (
	// Pattern is a compiled, immutable byte pattern.
	Pattern = pattern.Pattern

	// Element is one position of a Pattern.
	Element = pattern.Element

	// Notation selects how pattern text is read.
	Notation = pattern.Notation

	// IDAStyle reads "48 8B ? ?? 05".
	IDAStyle = pattern.IDAStyle

	// CodeStyle reads "\x48\x8B\x00" with a mask such as "xx?".
	CodeStyle = pattern.CodeStyle

	// HexString reads "488b????05".
	HexString = pattern.HexString

	// Scanner searches buffers for one pattern.
	Scanner = matcher.Scanner

	// ThreadConfig selects a Scanner's worker count.
	ThreadConfig = matcher.ThreadConfig

	// SectionMatch is a hit inside a named object file section.
	SectionMatch = section.Match

	// Signature is a named pattern with metadata.
	Signature = types.Signature

	// Match is one occurrence of a signature.
	Match = types.Match

	// Finding groups matches of a signature with the same wildcard bytes.
	Finding = types.Finding

	// Location places a match in its blob.
	Location = types.Location

	// Snippet holds matched bytes with context.
	Snippet = types.Snippet
)

// Wildcard matches any byte.
var Wildcard = pattern.Wildcard

// Byte returns a concrete pattern element.
func Byte(b byte) Element { return pattern.Byte(b) }

// NewPattern builds a pattern from elements.
func NewPattern(elems ...Element) (Pattern, error) { return pattern.New(elems...) }

// Compile parses pattern text in the given notation.
func Compile(text string, n Notation) (Pattern, error) { return pattern.Compile(text, n) }

// MustCompile is like Compile but panics on error.
func MustCompile(text string, n Notation) Pattern { return pattern.MustCompile(text, n) }

// FromCode builds a pattern from signature bytes and a mask.
func FromCode(sig []byte, mask string) (Pattern, error) { return pattern.FromCode(sig, mask) }

// Build prepares a Scanner for p.
func Build(p Pattern, cfg ThreadConfig) (*Scanner, error) { return matcher.Build(p, cfg) }

// MustBuild is like Build but panics on error.
func MustBuild(p Pattern, cfg ThreadConfig) *Scanner { return matcher.MustBuild(p, cfg) }

// SingleThreaded scans on the calling goroutine.
func SingleThreaded() ThreadConfig { return matcher.SingleThreaded() }

// FixedThreads scans with n workers.
func FixedThreads(n int) ThreadConfig { return matcher.FixedThreads(n) }

// AllAvailableThreads scans with one worker per CPU.
func AllAvailableThreads() ThreadConfig { return matcher.AllAvailableThreads() }

// ScanSection scans only the named section of an ELF, PE or Mach-O image in
// data. It reports whether cb asked to stop.
func ScanSection(s *Scanner, data []byte, name string, cb func(SectionMatch) bool) (bool, error) {
	return section.Scan(s, data, name, cb)
}

// SignatureScanner scans content against a set of signatures.
type SignatureScanner struct {
	core *scanner.Core
}

// scannerConfig holds SignatureScanner configuration.
type scannerConfig struct {
	signatures   []*Signature
	threads      ThreadConfig
	contextBytes int
	maxMatches   int
	logger       *log.Logger
}

// Option configures a SignatureScanner.
type Option func(*scannerConfig)

// WithSignatures uses custom signatures instead of the built-in set.
func WithSignatures(sigs []*Signature) Option {
	return func(c *scannerConfig) {
		c.signatures = sigs
	}
}

// WithThreads sets the workers used per signature scan.
func WithThreads(cfg ThreadConfig) Option {
	return func(c *scannerConfig) {
		c.threads = cfg
	}
}

// WithContextBytes sets the snippet context kept around matches.
// Default is 16 bytes on each side.
func WithContextBytes(n int) Option {
	return func(c *scannerConfig) {
		c.contextBytes = n
	}
}

// WithMaxMatches caps the matches per signature per scan (0 = no limit).
func WithMaxMatches(n int) Option {
	return func(c *scannerConfig) {
		c.maxMatches = n
	}
}

// WithLogger sends debug output to l.
func WithLogger(l *log.Logger) Option {
	return func(c *scannerConfig) {
		c.logger = l
	}
}

// NewSignatureScanner creates a SignatureScanner. By default it uses the
// built-in signatures, a single thread and 16 bytes of snippet context.
func NewSignatureScanner(opts ...Option) (*SignatureScanner, error) {
	config := &scannerConfig{
		threads:      SingleThreaded(),
		contextBytes: scanner.DefaultContextBytes,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.signatures == nil {
		sigs, err := LoadBuiltinSignatures()
		if err != nil {
			return nil, fmt.Errorf("loading builtin signatures: %w", err)
		}
		config.signatures = sigs
	}

	core, err := scanner.NewCore(config.signatures, scanner.Config{
		Threads:                config.threads,
		MaxMatchesPerSignature: config.maxMatches,
		ContextBytes:           config.contextBytes,
		Logger:                 config.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}
	return &SignatureScanner{core: core}, nil
}

// ScanBytes scans content and returns its matches ordered by offset.
func (s *SignatureScanner) ScanBytes(content []byte) ([]*Match, error) {
	return s.core.ScanBlob(content, types.ComputeBlobID(content), nil)
}

// ScanFile maps a file and scans it.
func (s *SignatureScanner) ScanFile(path string) ([]*Match, error) {
	content, release, err := enum.MapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.core.ScanBlob(content, types.ComputeBlobID(content), types.FileProvenance{FilePath: path})
}

// Signatures returns the loaded signatures.
func (s *SignatureScanner) Signatures() []*Signature {
	return s.core.Signatures()
}

// SignatureCount returns the number of loaded signatures.
func (s *SignatureScanner) SignatureCount() int {
	return len(s.core.Signatures())
}

// Close releases scanner resources.
func (s *SignatureScanner) Close() error {
	return s.core.Close()
}

// LoadSignaturesFromFile loads signatures from a YAML file or a directory
// of them.
func LoadSignaturesFromFile(path string) ([]*Signature, error) {
	return signature.NewLoader().LoadPath(path)
}

// LoadBuiltinSignatures returns the built-in signatures.
func LoadBuiltinSignatures() ([]*Signature, error) {
	return signature.NewLoader().LoadBuiltinSignatures()
}
