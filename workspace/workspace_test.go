package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/drover/errors"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestResolveRejectsEscape(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.Resolve("../../etc/passwd")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
}

func TestResolveRejectsAbsolute(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.Resolve("/etc/passwd")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
}

func TestResolveNormalizesInsideRoot(t *testing.T) {
	ws := newTestWorkspace(t)

	abs, err := ws.Resolve("a/b/../c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "a", "c"), abs)
}

func TestWriteReadRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	content := "line one\nline two\n\ttabbed"
	require.NoError(t, ws.Write("deep/nested/file.txt", content))

	got, err := ws.Read("deep/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestReadMissingFileIsNotFound(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.Read("nope.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDelete(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("gone.txt", "x"))

	require.NoError(t, ws.Delete("gone.txt"))
	assert.False(t, ws.Exists("gone.txt"))

	err := ws.Delete("gone.txt")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestExists(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("here.txt", "x"))

	assert.True(t, ws.Exists("here.txt"))
	assert.False(t, ws.Exists("missing.txt"))
	// Escaping paths probe as false, never as an error.
	assert.False(t, ws.Exists("../outside"))
}

func TestBackup(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("keep.txt", "original"))

	bak, err := ws.Backup("keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "keep.txt.bak", bak)

	got, err := ws.Read(bak)
	require.NoError(t, err)
	assert.Equal(t, "original", got)
}

func TestList(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.go", "package a"))
	require.NoError(t, ws.Write("sub/b.txt", "b"))

	entries, err := ws.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, ".go", byName["a.go"].Extension)
	assert.False(t, byName["a.go"].IsDirectory)
	assert.True(t, byName["sub"].IsDirectory)
}

func TestListMissingDirIsNotFound(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.List("ghost")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFindFilesHonorsIgnores(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("main.go", "package main"))
	require.NoError(t, ws.Write("pkg/util.go", "package pkg"))
	require.NoError(t, ws.Write("node_modules/dep/index.js", "x"))
	require.NoError(t, ws.Write("dist/out.go", "x"))
	require.NoError(t, os.MkdirAll(filepath.Join(ws.Root(), ".git"), 0755))
	require.NoError(t, ws.Write("notes.txt", "x"))

	found, err := ws.FindFiles("**/*.go", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", filepath.Join("pkg", "util.go")}, found)
}

func TestFindFilesExtraIgnore(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.go", "x"))
	require.NoError(t, ws.Write("skip/b.go", "x"))

	found, err := ws.FindFiles("**/*.go", []string{"skip/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, found)
}

func TestFindFilesInvalidPattern(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.FindFiles("[", nil)
	assert.Error(t, err)
}

func TestSearchInFiles(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "needle here\nnothing\nNEEDLE again"))
	require.NoError(t, ws.Write("b.txt", "no match"))

	results, err := ws.SearchInFiles("**/*.txt", "needle", false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Path)
	require.Len(t, results[0].Matches, 2)
	assert.Equal(t, 1, results[0].Matches[0].Line)
	assert.Equal(t, 1, results[0].Matches[0].Column)
	assert.Equal(t, 3, results[0].Matches[1].Line)
}

func TestSearchLiteralTextIsEscaped(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "price is $5.00 (sale)"))

	results, err := ws.SearchInFiles("**/*.txt", "$5.00 (sale)", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 10, results[0].Matches[0].Column)
}

func TestSearchCaseSensitive(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "Token token"))

	results, err := ws.SearchInFiles("**/*.txt", "Token", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Matches, 1)
}
