package signature

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"gopkg.in/yaml.v3"
)

// Loader reads signatures from YAML.
type Loader struct {
	fs fs.FS // filesystem holding the built-in signatures
}

// NewLoader returns a loader backed by the embedded built-in signatures.
func NewLoader() *Loader {
	return &Loader{fs: builtinFS}
}

// NewLoaderWithFS returns a loader whose built-in set is read from fsys.
// fsys must contain a "signatures" directory.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{fs: fsys}
}

// LoadSignature parses YAML holding exactly one signature.
func (l *Loader) LoadSignature(data []byte) (*types.Signature, error) {
	sigs, err := l.Load(data)
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("no signatures found in YAML")
	}
	if len(sigs) > 1 {
		return nil, fmt.Errorf("expected single signature, found %d", len(sigs))
	}
	return sigs[0], nil
}

// LoadSignatureFile reads a file holding exactly one signature.
func (l *Loader) LoadSignatureFile(path string) (*types.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return l.LoadSignature(data)
}

// Load parses every signature in data. Each pattern is compiled so that a
// bad signature is reported at load time, and its StructuralID is filled.
func (l *Loader) Load(data []byte) ([]*types.Signature, error) {
	var file yamlSignaturesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	sigs := make([]*types.Signature, 0, len(file.Signatures))
	for _, ys := range file.Signatures {
		sig, err := convertYAMLSignature(ys)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// LoadFile reads every signature in a YAML file.
func (l *Loader) LoadFile(path string) ([]*types.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	sigs, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sigs, nil
}

// LoadDir reads every .yml and .yaml file under dir.
func (l *Loader) LoadDir(dir string) ([]*types.Signature, error) {
	var sigs []*types.Signature
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		loaded, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		sigs = append(sigs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

// LoadPath loads a single file or a directory.
func (l *Loader) LoadPath(path string) ([]*types.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return l.LoadDir(path)
	}
	return l.LoadFile(path)
}

// LoadBuiltinSignatures loads the built-in signature set.
func (l *Loader) LoadBuiltinSignatures() ([]*types.Signature, error) {
	var sigs []*types.Signature

	err := fs.WalkDir(l.fs, "signatures", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}

		data, err := fs.ReadFile(l.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		loaded, err := l.Load(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		sigs = append(sigs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

func convertYAMLSignature(ys yamlSignature) (*types.Signature, error) {
	sig := &types.Signature{
		ID:               ys.ID,
		Name:             ys.Name,
		Pattern:          ys.Pattern,
		Notation:         ys.Notation,
		Mask:             ys.Mask,
		Section:          ys.Section,
		Description:      strings.TrimSpace(ys.Description),
		Examples:         ys.Examples,
		NegativeExamples: ys.NegativeExamples,
		References:       ys.References,
		Categories:       ys.Categories,
	}
	if sig.Notation == "" {
		sig.Notation = "ida"
	}
	id, err := sig.ComputeStructuralID()
	if err != nil {
		return nil, fmt.Errorf("signature %s: %w", sig.ID, err)
	}
	sig.StructuralID = id
	return sig, nil
}
