package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// writeFile writes content to dir/name, creating parent directories, and
// returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// tinyDoc returns a TOML workflow with a single terminal state.
func tinyDoc(id string) string {
	return "id = \"" + id + "\"\ninitial_state = \"a\"\n\n[[states]]\nid = \"a\"\nkind = \"terminal\"\n"
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "workflows/a.toml", tinyDoc("a"))
	b := writeFile(t, dir, "workflows/nested/deep/b.toml", tinyDoc("b"))
	c := writeFile(t, dir, "workflows/c.json", `{"id":"c","initial_state":"x","states":[{"id":"x"}]}`)
	writeFile(t, dir, "workflows/readme.md", "# not a workflow")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "workflows/dir.toml"), 0o755))

	files, err := Discover(dir, []string{"workflows/**/*.toml", "workflows/**/*.json", "workflows/*.toml"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, c, b}, files, "sorted, deduplicated, files only")
}

func TestDiscover_AbsolutePattern(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "x/a.toml", tinyDoc("a"))

	files, err := Discover("/somewhere/else", []string{filepath.Join(dir, "x", "*.toml")})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)
}

func TestDiscover_NoMatches(t *testing.T) {
	t.Parallel()

	files, err := Discover(t.TempDir(), []string{"nothing/**/*.toml"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := Discover(t.TempDir(), []string{"workflows/[a-"})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for _, id := range []string{"one", "two", "three", "four"} {
		paths = append(paths, writeFile(t, dir, id+".toml", tinyDoc(id)))
	}
	bad := writeFile(t, dir, "bad.toml", "id = \"bad\"\ninitial_state = \"missing\"\n")
	paths = append(paths[:2], append([]string{bad}, paths[2:]...)...)

	loaded, err := LoadAll(context.Background(), paths, NewBuiltinRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)

	require.Len(t, loaded, 4)
	ids := make([]string, 0, len(loaded))
	for _, l := range loaded {
		ids = append(ids, l.Definition.ID)
		assert.NotNil(t, l.Document)
		assert.NotEmpty(t, l.Path)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, ids, "input order is preserved")

	l, ok := Find(loaded, "three")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "three.toml"), l.Path)

	_, ok = Find(loaded, "bad")
	assert.False(t, ok)
}

func TestLoadAll_Empty(t *testing.T) {
	t.Parallel()

	loaded, err := LoadAll(context.Background(), nil, NewRegistry())
	assert.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadAll_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "a.toml", tinyDoc("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loaded, err := LoadAll(ctx, []string{path}, NewRegistry())
	assert.Nil(t, loaded)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadAll_DuplicateIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeFile(t, dir, "a/dup.toml", tinyDoc("dup"))
	other := writeFile(t, dir, "b/other.toml", tinyDoc("other"))
	second := writeFile(t, dir, "c/dup.toml", tinyDoc("dup"))

	loaded, err := LoadAll(context.Background(), []string{first, other, second}, NewBuiltinRegistry())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)

	var dup *DuplicateIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "dup", dup.ID)
	assert.Equal(t, []string{first, second}, dup.Paths)
	assert.Contains(t, err.Error(), first)
	assert.Contains(t, err.Error(), second)

	require.Len(t, loaded, 1)
	assert.Equal(t, "other", loaded[0].Definition.ID)
	_, ok := Find(loaded, "dup")
	assert.False(t, ok, "an ambiguous id must not resolve to either file")
}

func TestDuplicateIDs(t *testing.T) {
	t.Parallel()

	entry := func(id, path string) *Loaded {
		return &Loaded{Path: path, Definition: &workflow.Definition[Data]{ID: id}}
	}
	dups := DuplicateIDs([]*Loaded{
		entry("x", "1"), entry("y", "2"), entry("x", "3"), entry("z", "4"), entry("x", "5"), entry("z", "6"),
	})
	require.Len(t, dups, 2)
	assert.Equal(t, "x", dups[0].ID)
	assert.Equal(t, []string{"1", "3", "5"}, dups[0].Paths)
	assert.Equal(t, "z", dups[1].ID)
	assert.Equal(t, []string{"4", "6"}, dups[1].Paths)

	assert.Empty(t, DuplicateIDs([]*Loaded{entry("x", "1"), entry("y", "2")}))
}
