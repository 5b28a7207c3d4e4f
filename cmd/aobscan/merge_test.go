package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/store"
	"github.com/praetorian-inc/aobscan/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMergeCmd creates a fresh merge command for testing
func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "merge <source1.db> <source2.db> [source3.db...]",
		Args: cobra.MinimumNArgs(2),
		RunE: runMerge,
	}
	cmd.Flags().StringVarP(&mergeOutput, "output", "o", "merged.db", "Output database path")
	return cmd
}

// newSource creates a database holding one blob and one finding.
func newSource(t *testing.T, path string, content []byte, findingID string) {
	t.Helper()
	s, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.AddBlob(types.ComputeBlobID(content), int64(len(content))))
	require.NoError(t, s.AddFinding(&types.Finding{ID: findingID, SignatureID: "sig"}))
	require.NoError(t, s.Close())
}

func TestMergeCmd_RequiresMinimumArgs(t *testing.T) {
	cmd := newMergeCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "requires at least 2 arg")

	cmd = newMergeCmd()
	cmd.SetArgs([]string{"source1.db"})
	err = cmd.Execute()
	assert.ErrorContains(t, err, "requires at least 2 arg")
}

func TestMergeCmd_MergesTwoDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	source1Path := filepath.Join(tmpDir, "source1.db")
	source2Path := filepath.Join(tmpDir, "source2.db")
	newSource(t, source1Path, []byte("content1"), "finding1")
	newSource(t, source2Path, []byte("content2"), "finding2")

	destPath := filepath.Join(tmpDir, "merged.db")
	var buf bytes.Buffer
	cmd := newMergeCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{source1Path, source2Path, "--output", destPath})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Merge complete")
	assert.Contains(t, output, "Sources processed: 2")
	assert.Contains(t, output, "Blobs merged: 2")
	assert.Contains(t, output, "Findings merged: 2")

	dest, err := store.NewSQLite(destPath)
	require.NoError(t, err)
	defer dest.Close()

	exists1, err := dest.FindingExists("finding1")
	require.NoError(t, err)
	exists2, err := dest.FindingExists("finding2")
	require.NoError(t, err)
	assert.True(t, exists1)
	assert.True(t, exists2)
}

func TestMergeCmd_ReportsDeduplication(t *testing.T) {
	tmpDir := t.TempDir()
	source1Path := filepath.Join(tmpDir, "source1.db")
	source2Path := filepath.Join(tmpDir, "source2.db")
	newSource(t, source1Path, []byte("same content"), "same-finding")
	newSource(t, source2Path, []byte("same content"), "same-finding")

	destPath := filepath.Join(tmpDir, "merged.db")
	var buf bytes.Buffer
	cmd := newMergeCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{source1Path, source2Path, "--output", destPath})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Blobs merged: 1")
	assert.Contains(t, output, "Findings merged: 1")
}

func TestMergeCmd_FailsWithInvalidSource(t *testing.T) {
	destPath := filepath.Join(t.TempDir(), "merged.db")
	cmd := newMergeCmd()
	cmd.SetArgs([]string{"/nonexistent/source1.db", "/nonexistent/source2.db", "--output", destPath})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "merge failed")
}
