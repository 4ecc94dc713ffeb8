package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

// UniqueName returns prefix followed by a random UUID, for names that must
// not collide across parallel tests sharing a store.
func UniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// SourceFile writes body to a fresh file in a per-test directory and returns
// its path. The file name carries a UUID so no two calls share a path.
func SourceFile(t testing.TB, ext, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), uuid.NewString()+ext)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write source file %s: %v", path, err)
	}
	return path
}

// Touch moves the modification time of path by d, so mtime based stamps see
// a change even on filesystems with coarse timestamps.
func Touch(t testing.TB, path string, d time.Duration) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	mtime := info.ModTime().Add(d)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to touch %s: %v", path, err)
	}
}
