//go:build !unix

package scanner

import "os"

func sizeOnDisk(path string, info os.FileInfo) int64 {
	return info.Size()
}
