//go:build unix

package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSizeOnDiskSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.img")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(20 << 20); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 20<<20 {
		t.Fatalf("expected 20 MB logical size, got %d", info.Size())
	}
	got := sizeOnDisk(path, info)
	if got >= 20<<20 {
		t.Fatalf("sparse file must report allocated size, not logical length, got %d", got)
	}
}

func TestSizeOnDiskDenseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dense.bin")
	if err := os.WriteFile(path, make([]byte, 8192), 0600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := sizeOnDisk(path, info); got < 8192 {
		t.Fatalf("dense file must report at least its written bytes, got %d", got)
	}
}
