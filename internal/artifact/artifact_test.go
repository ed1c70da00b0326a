package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
	}{
		{"O0", Unoptimized},
		{"o0", Unoptimized},
		{"unoptimized", Unoptimized},
		{"O2", Optimized},
		{" Optimized ", Optimized},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTag("O3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid optimization level")
}

func TestTagName(t *testing.T) {
	assert.Equal(t, "unoptimized", Unoptimized.Name())
	assert.Equal(t, "optimized", Optimized.Name())
	assert.False(t, Tag("O1").Valid())
}

func TestDescriptorPaths(t *testing.T) {
	d := NewDescriptor("/tmp/art", "compiler")

	assert.Equal(t, filepath.Join("/tmp/art", "compiler_O0.o"), d.Path(Unoptimized))
	assert.Equal(t, filepath.Join("/tmp/art", "compiler_O2.o"), d.Path(Optimized))
}

func TestDescriptorAbs(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	d, err := NewDescriptor("artifacts", "compiler").Abs()
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "artifacts"), d.Root)
	assert.Equal(t, filepath.Join(wd, "artifacts", "compiler_O2.o"), d.Path(Optimized))
}

func TestLookup_Missing(t *testing.T) {
	d := NewDescriptor(t.TempDir(), "compiler")

	_, err := d.Lookup(Unoptimized)

	require.Error(t, err)
	assert.True(t, IsMissing(err))
	var me *MissingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, Unoptimized, me.Tag)
}

func TestLookup_Present(t *testing.T) {
	d := NewDescriptor(t.TempDir(), "compiler")
	require.NoError(t, os.WriteFile(d.Path(Optimized), []byte("ELF-ish"), 0o644))

	v, err := d.Lookup(Optimized)

	require.NoError(t, err)
	assert.Equal(t, Optimized, v.Tag)
	assert.Equal(t, int64(7), v.Size)
}

func TestSnapshot_SurvivesReplacement(t *testing.T) {
	d := NewDescriptor(t.TempDir(), "compiler")
	path := d.Path(Unoptimized)
	require.NoError(t, os.WriteFile(path, []byte("first build"), 0o644))

	snap, err := d.Snapshot(Unoptimized)
	require.NoError(t, err)

	// Publish a new artifact the way the build orchestrator does.
	next := path + ".next"
	require.NoError(t, os.WriteFile(next, []byte("second build, longer"), 0o644))
	require.NoError(t, os.Rename(next, path))

	data, err := os.ReadFile(snap.Variant.Path)
	require.NoError(t, err)
	assert.Equal(t, "first build", string(data))
	assert.Equal(t, filepath.Base(path), filepath.Base(snap.Variant.Path))

	dir := filepath.Dir(snap.Variant.Path)
	require.NoError(t, snap.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "work area should be removed on Close")
}

func TestSnapshot_Missing(t *testing.T) {
	d := NewDescriptor(t.TempDir(), "compiler")

	snap, err := d.Snapshot(Optimized)

	assert.Nil(t, snap)
	assert.True(t, IsMissing(err))
	entries, err := os.ReadDir(d.Root)
	require.NoError(t, err)
	assert.Empty(t, entries, "no work area should be created for a missing artifact")
}

func TestSnapshot_CloseNil(t *testing.T) {
	var s *Snapshot
	assert.NoError(t, s.Close())
}

func TestDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.o")
	b := filepath.Join(dir, "b.o")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0o644))

	da, err := Digest(a)
	require.NoError(t, err)
	db, err := Digest(b)
	require.NoError(t, err)

	assert.Len(t, da, 64)
	assert.Equal(t, da, db, "digest depends on content only")

	require.NoError(t, os.WriteFile(b, []byte("different"), 0o644))
	db, err = Digest(b)
	require.NoError(t, err)
	assert.NotEqual(t, da, db)

	_, err = Digest(filepath.Join(dir, "missing.o"))
	assert.Error(t, err)
}
