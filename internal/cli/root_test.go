package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/evo/internal/errors"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EVO_HOME", t.TempDir())
	t.Cleanup(CloseLogFile)

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-01"})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := executeRoot(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "evo")
	for _, sub := range []string{"run", "serve", "status", "blueprints", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeRoot(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3 (commit: abc123, built: 2026-01-01)")
}

func TestRootCmd_InvalidOutputFormat(t *testing.T) {
	_, err := executeRoot(t, "--output", "xml", "version")
	require.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRootCmd_UnknownFlag(t *testing.T) {
	_, err := executeRoot(t, "version", "--bogus")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestVersionCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out, err := executeRoot(t, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "evo 1.2.3 (commit: abc123")
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeRoot(t, "-o", "json", "version")
		require.NoError(t, err)

		var report versionReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, "1.2.3", report.Version)
		assert.Equal(t, "abc123", report.Commit)
		assert.NotEmpty(t, report.GoVersion)
	})
}

func TestFormatVersion_Defaults(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
}
