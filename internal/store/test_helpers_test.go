package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/objscope/internal/artifact"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBuild creates a build record publishing the given tags.
func createTestBuild(id, status string, tags ...artifact.Tag) BuildRecord {
	rec := BuildRecord{ID: id, SourceDir: "/src", Status: status}
	for _, tag := range tags {
		rec.Artifacts = append(rec.Artifacts, ArtifactRecord{
			Tag:    tag,
			Path:   "/artifacts/compiler_" + string(tag) + ".o",
			Size:   1024,
			Digest: id + "-" + string(tag),
		})
	}
	return rec
}
