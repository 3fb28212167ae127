package ioc

// HashType identifies the digest algorithm an indicator value belongs to.
type HashType int

const (
	Unknown HashType = iota
	MD5
	SHA1
	SHA256
)

func (t HashType) String() string {
	switch t {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// TypeOf classifies a hash value by its hex length.
func TypeOf(value string) HashType {
	switch len(value) {
	case 32:
		return MD5
	case 40:
		return SHA1
	case 64:
		return SHA256
	default:
		return Unknown
	}
}

// HashIndicator is one known-bad hash loaded from the indicator file.
// Value is always lowercase hex.
type HashIndicator struct {
	Type        HashType
	Value       string
	Description string
	Score       int
}
