package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o600))

	got, err := resolveInstructions(path, "inline")
	require.NoError(t, err)
	assert.Equal(t, "from file\n", got)

	got, err = resolveInstructions("", "inline")
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	got, err = resolveInstructions("", "")
	require.NoError(t, err)
	assert.Equal(t, defaultInstructions, got)

	_, err = resolveInstructions(filepath.Join(t.TempDir(), "missing"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReviewPrompt(t *testing.T) {
	assert.Equal(t, "Check:\n```\n+a\n-b\n```", reviewPrompt("Check:\n", "+a\n-b"))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a.go", "b/c.go"}, splitList("a.go, b/c.go,"))
}

func TestAppRequiresDiffFile(t *testing.T) {
	app := newApp()
	app.Writer = new(nopWriter)
	app.ErrWriter = new(nopWriter)
	err := app.Run([]string{"wca-review"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diff-file")
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
