package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rkerrors "github.com/openkb/ragkit/internal/errors"
)

// runCommand executes the CLI with a test config that keeps all state
// inside temp directories, returning combined output.
func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// writeTestConfig points the index directory and the log file into a
// temp directory so tests never touch the user's home.
func writeTestConfig(t *testing.T, indexDir string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("index:\n  dir: %s\nlogging:\n  file_path: %s\n",
		indexDir, filepath.Join(dir, "ragkit.log"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	cfgPath := writeTestConfig(t, t.TempDir())

	out, err := runCommand(t, cfgPath, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ragkit")

	out, err = runCommand(t, cfgPath, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestConfigInitAndShow(t *testing.T) {
	// Given: no config file yet
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	// When: initializing
	out, err := runCommand(t, cfgPath, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, cfgPath)

	// Then: the template is on disk and loads cleanly
	_, err = os.Stat(cfgPath)
	require.NoError(t, err)

	out, err = runCommand(t, cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "target_tokens: 800")

	// And: a second init without --force refuses to overwrite
	_, err = runCommand(t, cfgPath, "config", "init")
	require.Error(t, err)

	_, err = runCommand(t, cfgPath, "config", "init", "--force")
	require.NoError(t, err)
}

func TestIndexThenQuery(t *testing.T) {
	// Given: a docs directory and an empty index directory
	docs := t.TempDir()
	indexDir := filepath.Join(t.TempDir(), "index")
	cfgPath := writeTestConfig(t, indexDir)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "slack.md"),
		[]byte("# Slack Migration Guide\nHow to migrate slack channels and direct messages to Teams."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "seating.md"),
		[]byte("# Office Seating\nDesk assignments for the third floor."), 0o644))

	// When: indexing
	out, err := runCommand(t, cfgPath, "index", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 2 files")

	// Then: a query returns ranked results
	out, err = runCommand(t, cfgPath, "query", "slack migration")
	require.NoError(t, err)
	assert.Contains(t, out, "1. [")
	assert.Contains(t, out, "Slack Migration Guide")
}

func TestQuery_MissingIndexIsRetrievalUnavailable(t *testing.T) {
	cfgPath := writeTestConfig(t, filepath.Join(t.TempDir(), "no-index"))

	_, err := runCommand(t, cfgPath, "query", "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rkerrors.ErrRetrievalUnavailable))
}

func TestIndex_RejectsNonDirectory(t *testing.T) {
	indexDir := t.TempDir()
	cfgPath := writeTestConfig(t, indexDir)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, []byte("content"), 0o644))

	_, err := runCommand(t, cfgPath, "index", file)
	require.Error(t, err)
	assert.Equal(t, rkerrors.ErrCodeConfigInvalid, rkerrors.GetCode(err))
}

func TestIndex_RebuildSwapsAtomically(t *testing.T) {
	// Given: an existing index
	docs := t.TempDir()
	indexDir := filepath.Join(t.TempDir(), "index")
	cfgPath := writeTestConfig(t, indexDir)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "old.md"),
		[]byte("# Old Topic\nContent about the legacy tenant configuration."), 0o644))
	_, err := runCommand(t, cfgPath, "index", docs)
	require.NoError(t, err)

	// When: rebuilding from a different corpus
	docs2 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs2, "new.md"),
		[]byte("# New Topic\nContent about sharepoint permission mapping."), 0o644))
	out, err := runCommand(t, cfgPath, "index", docs2, "--rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 files")

	// Then: no staging or backup directories remain
	_, err = os.Stat(indexDir + ".build")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(indexDir + ".old")
	assert.True(t, os.IsNotExist(err))

	// And: the old corpus is gone from the index
	out, err = runCommand(t, cfgPath, "query", "sharepoint permission mapping")
	require.NoError(t, err)
	assert.Contains(t, out, "New Topic")
	assert.NotContains(t, out, "Old Topic")
}
