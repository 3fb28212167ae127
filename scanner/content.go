package scanner

import (
	"golang.org/x/exp/mmap"
)

// indirection for tests
var openMmapReader = mmap.Open

// readFileContent maps the file and copies it into memory. Callers have
// already bounded the size, so a full copy is acceptable and keeps the
// hashing and pattern passes free of page fault latency mid-match.
func readFileContent(path string) ([]byte, error) {
	r, err := openMmapReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := make([]byte, r.Len())
	if r.Len() == 0 {
		return content, nil
	}
	if _, err := r.ReadAt(content, 0); err != nil {
		return nil, err
	}
	return content, nil
}
