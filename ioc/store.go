package ioc

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"huntsman/logger"

	"github.com/FastFilter/xorfilter"
	"github.com/cespare/xxhash/v2"
)

// DefaultScore is assigned to every indicator; the file format carries no
// per-record score in this version.
const DefaultScore = 100

type storeKey struct {
	t HashType
	v string
}

// Store is the read-only index of hash indicators. It is built once at
// startup and safe for concurrent lookups.
type Store struct {
	index  map[storeKey][]HashIndicator
	filter *xorfilter.Xor8
	count  int
}

// Load reads a semicolon-delimited indicator file: hash;description[;...].
// Lines starting with '#' are comments. Malformed records are skipped with a
// diagnostic; only a failure to read the file itself is returned as an error.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open indicator file %s: %w", path, err)
	}
	defer f.Close()
	return load(f)
}

func load(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	s := &Store{index: make(map[storeKey][]HashIndicator)}
	var keys []uint64
	seen := make(map[uint64]struct{})
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Debugf("Cannot read line in hash IOC file (which can be okay) ERROR: %v", err)
			continue
		}
		if len(record) < 2 {
			logger.Debugf("Skipping indicator record with fewer than two fields: %v", record)
			continue
		}
		value := strings.ToLower(strings.TrimSpace(record[0]))
		if value == "" {
			continue
		}
		ind := HashIndicator{
			Type:        TypeOf(value),
			Value:       value,
			Description: strings.TrimSpace(record[1]),
			Score:       DefaultScore,
		}
		logger.Tracef("Read hash IOC HASH: %s DESC: %s TYPE: %s", ind.Value, ind.Description, ind.Type)
		key := storeKey{t: ind.Type, v: ind.Value}
		s.index[key] = append(s.index[key], ind)
		s.count++

		sum := xxhash.Sum64String(ind.Value)
		if _, ok := seen[sum]; !ok {
			seen[sum] = struct{}{}
			keys = append(keys, sum)
		}
	}

	if len(keys) > 0 {
		filter, err := xorfilter.Populate(keys)
		if err != nil {
			// Lookups still work without the prefilter, just slower.
			logger.Debugf("Failed to build indicator prefilter: %v", err)
		} else {
			s.filter = filter
		}
	}
	return s, nil
}

// Find returns every indicator stored for the given type and value. The
// lookup is case-insensitive on input; stored values are lowercase.
func (s *Store) Find(t HashType, value string) []HashIndicator {
	value = strings.ToLower(value)
	if s.filter != nil && !s.filter.Contains(xxhash.Sum64String(value)) {
		return nil
	}
	return s.index[storeKey{t: t, v: value}]
}

// Len reports the number of loaded indicators.
func (s *Store) Len() int {
	return s.count
}
