package main

import (
	"encoding/json"
	"runtime/debug"
	"testing"

	"github.com/praetorian-inc/aobscan/pkg/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinCount(t *testing.T) int {
	t.Helper()
	sigs, err := signature.NewLoader().LoadBuiltinSignatures()
	require.NoError(t, err)
	return len(sigs)
}

func TestRunVersion(t *testing.T) {
	versionFormat = "human"
	cmd, stdout, _ := newTestCmd()
	require.NoError(t, runVersion(cmd, nil))

	output := stdout.String()
	assert.Contains(t, output, "aobscan ")
	assert.Contains(t, output, "Commit: ")
	assert.Contains(t, output, "Go version: go")
	assert.Contains(t, output, "CPUs)")
	assert.Contains(t, output, "Built-in signatures: ")
}

func TestRunVersion_JSON(t *testing.T) {
	versionFormat = "json"
	t.Cleanup(func() { versionFormat = "human" })
	cmd, stdout, _ := newTestCmd()
	require.NoError(t, runVersion(cmd, nil))

	var info versionInfo
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.Equal(t, builtinCount(t), info.BuiltinSignatures)
	assert.Positive(t, info.CPUs)
	assert.NotEmpty(t, info.Commit)
}

func TestRunVersion_UnknownFormat(t *testing.T) {
	versionFormat = "xml"
	t.Cleanup(func() { versionFormat = "human" })
	cmd, _, _ := newTestCmd()
	assert.ErrorContains(t, runVersion(cmd, nil), "unknown output format")
}

func TestBuildVersionInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/praetorian-inc/aobscan", Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abcd"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := buildVersionInfo(bi)
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123abcd", info.Commit)
	assert.True(t, info.Modified)
	assert.Equal(t, builtinCount(t), info.BuiltinSignatures)

	info = buildVersionInfo(nil)
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.Commit)
	assert.False(t, info.Modified)
}

func TestBuildVersionInfo_LinkTimeValuesWin(t *testing.T) {
	oldVersion, oldCommit := version, commit
	version, commit = "1.0.0", "feedface"
	t.Cleanup(func() { version, commit = oldVersion, oldCommit })

	info := buildVersionInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123abcd"}},
	})
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "feedface", info.Commit)
}
