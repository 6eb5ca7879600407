package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "chunks.db")
	sub := filepath.Join(dir, "keyword", "store")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for path, content := range map[string]string{
		f1:                                   "hello",
		filepath.Join(sub, "a"):              "ab",
		filepath.Join(sub, "b"):              "c",
		filepath.Join(dir, "keyword", "meta"): "dddd",
	} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"nested directory", []string{filepath.Join(dir, "keyword")}, 7},
		{"file and directory", []string{f1, sub}, 8},
		{"missing path skipped", []string{f1, filepath.Join(dir, "vectors.bin"), sub}, 8},
		{"empty path skipped", []string{"", f1}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
