package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

// Digests holds the three hex digests indicator matching works with.
type Digests struct {
	MD5    string
	SHA1   string
	SHA256 string
}

// Sum computes all three digests over in-memory content.
func Sum(data []byte) Digests {
	md5Sum := md5.Sum(data)
	sha1Sum := sha1.Sum(data)
	sha256Sum := sha256.Sum256(data)
	return Digests{
		MD5:    hex.EncodeToString(md5Sum[:]),
		SHA1:   hex.EncodeToString(sha1Sum[:]),
		SHA256: hex.EncodeToString(sha256Sum[:]),
	}
}

// SumFile streams a file through all three digests with a pooled buffer.
// It is the fallback for content that was not mapped into memory.
func SumFile(path string) (Digests, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digests{}, err
	}
	defer file.Close()

	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()

	bufferPool := &hashBufferSmallPool
	if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}
	bufferPtr := bufferPool.Get().(*[]byte)
	buffer := *bufferPtr
	defer bufferPool.Put(bufferPtr)

	for {
		n, readErr := file.Read(buffer)
		if n > 0 {
			chunk := buffer[:n]
			md5h.Write(chunk)
			sha1h.Write(chunk)
			sha256h.Write(chunk)
		}
		if readErr != nil {
			if readErr != io.EOF {
				return Digests{}, readErr
			}
			break
		}
	}

	return Digests{
		MD5:    hex.EncodeToString(md5h.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
	}, nil
}
