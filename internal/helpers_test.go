package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "props.json")

	if err := WriteFileAtomic(path, []byte("{}\n")); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"circle": {}}`)); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"circle": {}}` {
		t.Errorf("Unexpected content %q", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "props.json" {
		names := make([]string, len(entries))
		for i, entry := range entries {
			names[i] = entry.Name()
		}
		t.Errorf("Expected only props.json in the directory, got %v", names)
	}
}

func TestWriteFileAtomicReportsBadDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(filepath.Join(blocker, "props.json"), []byte("{}")); err == nil {
		t.Error("Expected error writing below a regular file")
	}
}
