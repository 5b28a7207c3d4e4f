package signature

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prologueYAML = `signatures:
  - name: x64 frame prologue
    id: test.prologue.1
    pattern: 55 48 89 E5
    description: |
      push rbp; mov rbp, rsp
    section: .text
    examples:
      - "55 48 89 e5 48 83 ec 10"
    negative_examples:
      - "55 48 8b ec"
    references:
      - https://example.com/x64-abi
    categories:
      - x64
      - prologue
`

func TestLoadSignature_Valid(t *testing.T) {
	sig, err := NewLoader().LoadSignature([]byte(prologueYAML))
	require.NoError(t, err)

	assert.Equal(t, "test.prologue.1", sig.ID)
	assert.Equal(t, "x64 frame prologue", sig.Name)
	assert.Equal(t, "ida", sig.Notation)
	assert.Equal(t, ".text", sig.Section)
	assert.Equal(t, "push rbp; mov rbp, rsp", sig.Description)
	assert.Len(t, sig.Examples, 1)
	assert.Len(t, sig.NegativeExamples, 1)
	assert.Equal(t, []string{"x64", "prologue"}, sig.Categories)
	assert.Len(t, sig.StructuralID, 40)
}

func TestLoadSignature_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "this is not valid yaml: [[["},
		{"no signatures", "signatures: []"},
		{"two signatures", `signatures:
  - {name: a, id: a.1, pattern: "AA"}
  - {name: b, id: b.1, pattern: "BB"}
`},
		{"bad pattern", `signatures:
  - {name: a, id: a.1, pattern: "AA ZZ"}
`},
		{"unknown notation", `signatures:
  - {name: a, id: a.1, pattern: "AA", notation: regex}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadSignature([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadPatternNamesSignature(t *testing.T) {
	_, err := NewLoader().Load([]byte(`signatures:
  - {name: a, id: broken.1, pattern: "AA ZZ"}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.1")
}

func TestLoad_StructuralIDIgnoresNotation(t *testing.T) {
	sigs, err := NewLoader().Load([]byte(`signatures:
  - name: ida
    id: n.ida
    pattern: "48 8B ? C3"
  - name: code
    id: n.code
    notation: code
    pattern: '\x48\x8B\x00\xC3'
    mask: "xx?x"
  - name: other
    id: n.other
    pattern: "48 8B ? C4"
`))
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	assert.Equal(t, sigs[0].StructuralID, sigs[1].StructuralID)
	assert.NotEqual(t, sigs[0].StructuralID, sigs[2].StructuralID)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte(prologueYAML), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.yaml"), []byte(`signatures:
  - {name: ret, id: test.ret.1, pattern: "C3"}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# not yaml"), 0o644))

	sigs, err := NewLoader().LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	ids := []string{sigs[0].ID, sigs[1].ID}
	assert.ElementsMatch(t, []string{"test.prologue.1", "test.ret.1"}, ids)
}

func TestLoadPath_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.yml")
	require.NoError(t, os.WriteFile(path, []byte(prologueYAML), 0o644))

	sigs, err := NewLoader().LoadPath(path)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "test.prologue.1", sigs[0].ID)

	_, err = NewLoader().LoadPath(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadBuiltinSignatures(t *testing.T) {
	sigs, err := NewLoader().LoadBuiltinSignatures()
	require.NoError(t, err)
	require.NotEmpty(t, sigs)

	for _, sig := range sigs {
		assert.NotEmpty(t, sig.StructuralID, sig.ID)
	}
}

func TestBuiltinSignaturesValidate(t *testing.T) {
	sigs, err := NewLoader().LoadBuiltinSignatures()
	require.NoError(t, err)

	for _, sig := range sigs {
		t.Run(sig.ID, func(t *testing.T) {
			assert.NoError(t, Validate(sig))
		})
	}
	assert.NoError(t, ValidateAll(sigs))
}

func TestLoadBuiltinSignatures_CustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"signatures/one.yml":   {Data: []byte(prologueYAML)},
		"signatures/notes.txt": {Data: []byte("ignored")},
	}

	sigs, err := NewLoaderWithFS(fsys).LoadBuiltinSignatures()
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.IsType(t, &types.Signature{}, sigs[0])
	assert.Equal(t, "test.prologue.1", sigs[0].ID)
}
