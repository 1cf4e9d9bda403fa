package main

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microsoft/skillcheck/internal/results"
)

func TestExportCommand_WritesArchive(t *testing.T) {
	clearProviderKeys(t)
	resultsD := t.TempDir()
	store := results.NewFileStore(resultsD)
	seedResult(t, store, "v1", "claude-sonnet", 0.9, map[string]int{"ISSUE-01": 1})
	seedResult(t, store, "v2", "gpt-5", 0.7, map[string]int{"ISSUE-01": 0})

	out := filepath.Join(t.TempDir(), "bundle.tar.zst")
	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"export", "--skill", "contract-review", "--output", out,
		"--skills-dir", t.TempDir(), "--results-dir", resultsD,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	stdout := captureStdout(t, func() {
		require.NoError(t, cmd.Execute())
	})
	assert.Contains(t, stdout, "Exported results for contract-review to "+out)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}

	assert.Equal(t, []string{
		"contract-review/v1/claude-sonnet__nda.json",
		"contract-review/v2/gpt-5__nda.json",
	}, names)
}

func TestExportCommand_NoResults(t *testing.T) {
	clearProviderKeys(t)
	out := filepath.Join(t.TempDir(), "bundle.tar.zst")

	cmd := newRootCommand()
	cmd.SetArgs([]string{
		"export", "--skill", "contract-review", "--output", out,
		"--skills-dir", t.TempDir(), "--results-dir", t.TempDir(),
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results for skill contract-review")

	// the partially created file is cleaned up
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportCommand_ShortOutputFlag(t *testing.T) {
	cmd := newExportCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--skill", "contract-review", "-o", "bundle.tar.zst"}))

	val, err := cmd.Flags().GetString("output")
	require.NoError(t, err)
	assert.Equal(t, "bundle.tar.zst", val)
}
