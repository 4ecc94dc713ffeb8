// Package testsupport holds helpers shared by the package tests: golden
// files, throwaway source files for file keyed strategies, and values that
// refuse to be encoded.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cast"
)

// EnvUpdateGolden rewrites golden files with the actual output when it holds
// a true value.
const EnvUpdateGolden = "PRECISE_CACHE_UPDATE_GOLDEN"

// GoldenPath returns the path of a golden file under testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// LoadGolden reads a golden file.
func LoadGolden(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load golden file from %s: %v", path, err)
	}
	return data
}

// WriteGolden writes a golden file, creating its directory.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// UpdateGolden reports whether EnvUpdateGolden asks for golden files to be
// rewritten. Values cast cannot read as a bool count as false.
func UpdateGolden() bool {
	update, err := cast.ToBoolE(os.Getenv(EnvUpdateGolden))
	return err == nil && update
}

// CompareWithGolden fails t when actual differs from the golden file at path.
// A missing golden file, or EnvUpdateGolden, writes actual instead.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	if UpdateGolden() {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}
