package scanner

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// relevantExtensions lists the extensions scanned regardless of content
// sniffing. These cover droppers, scripts, web shells and memory dumps.
var relevantExtensions = map[string]bool{
	".exe":   true,
	".dll":   true,
	".bat":   true,
	".ps1":   true,
	".asp":   true,
	".aspx":  true,
	".jsp":   true,
	".jspx":  true,
	".php":   true,
	".plist": true,
	".sh":    true,
	".vbs":   true,
	".js":    true,
	".dmp":   true,
}

// relevantTypes lists sniffed file kinds scanned even when the extension is
// unknown or misleading.
var relevantTypes = map[string]bool{
	"exe": true,
	"elf": true,
	"deb": true,
	"iso": true,
	"zip": true,
	"crx": true,
}

// sniffHeaderSize covers the longest magic number filetype knows about.
const sniffHeaderSize = 261

// sniffType reads the file header and returns the matched kind extension,
// or "" when the content is not recognized.
func sniffType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, sniffHeaderSize)
	n, err := io.ReadFull(f, head)
	if err != nil && n == 0 {
		return ""
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == types.Unknown {
		return ""
	}
	return kind.Extension
}

// admit decides whether a file enters the scan pipeline based on its
// extension and sniffed content type. scanAll bypasses both lists.
func admit(path, sniffed string, scanAll bool) bool {
	if scanAll {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	if relevantExtensions[ext] {
		return true
	}
	return relevantTypes[sniffed]
}
