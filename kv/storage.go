package kv

import (
	"iter"
	"strings"

	"github.com/indigo-web/utils/strcomp"
)

type Pair struct {
	Key, Value string
}

// Storage is an ordered multimap of (string, string) pairs. It acts as a map but uses linear
// search instead, which proves to be more efficient on relatively low amount of entries,
// which often enough is the case. Keys are compared case-insensitively, unless the storage
// is constructed via NewCaseSensitive.
type Storage struct {
	pairs         []Pair
	caseSensitive bool
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// NewCaseSensitive returns a storage comparing keys byte-by-byte.
func NewCaseSensitive() *Storage {
	return &Storage{caseSensitive: true}
}

// NewFromMap returns a new instance with already inserted values from given map.
// Note: as maps are unordered, resulting underlying structure will also contain unordered
// pairs.
func NewFromMap(m map[string][]string) *Storage {
	kv := NewPrealloc(len(m))

	for key, values := range m {
		for _, value := range values {
			kv.Add(key, value)
		}
	}

	return kv
}

// Add appends a new pair. Already existing values of the same key are kept.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Set replaces all the values of the key by a single one. The pair takes the place of the
// first occurrence of the key, otherwise it's appended.
func (s *Storage) Set(key, value string) *Storage {
	for i, pair := range s.pairs {
		if s.equal(key, pair.Key) {
			s.pairs[i] = Pair{Key: key, Value: value}
			s.pairs = append(s.pairs[:i+1], s.deleteFrom(s.pairs[i+1:], key)...)
			return s
		}
	}

	return s.Add(key, value)
}

// Delete removes all the pairs of the key.
func (s *Storage) Delete(key string) *Storage {
	s.pairs = s.deleteFrom(s.pairs, key)
	return s
}

func (s *Storage) deleteFrom(pairs []Pair, key string) []Pair {
	n := 0

	for _, pair := range pairs {
		if !s.equal(key, pair.Key) {
			pairs[n] = pair
			n++
		}
	}

	clear(pairs[n:])

	return pairs[:n]
}

// Value returns the first value, corresponding to the key. Otherwise, empty string is returned
func (s *Storage) Value(key string) string {
	return s.ValueOr(key, "")
}

// ValueOr returns either the first value corresponding to the key or custom value, defined
// via the second parameter.
func (s *Storage) ValueOr(key, or string) string {
	value, found := s.Get(key)
	if !found {
		return or
	}

	return value
}

// Get returns a value and a bool, indicating whether the value was found. If it wasn't, it'll
// be an empty string.
func (s *Storage) Get(key string) (value string, found bool) {
	for _, pair := range s.pairs {
		if s.equal(key, pair.Key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values iterates over all the values of the key in order of insertion.
func (s *Storage) Values(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, pair := range s.pairs {
			if s.equal(key, pair.Key) && !yield(pair.Value) {
				return
			}
		}
	}
}

// ValueList iterates over the elements of a list-valued key. A single entry holding
// "br, gzip" and two entries "br" and "gzip" produce the same sequence. Empty elements
// are skipped.
func (s *Storage) ValueList(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for value := range s.Values(key) {
			for len(value) > 0 {
				var element string
				element, value, _ = strings.Cut(value, ",")
				element = strings.Trim(element, " \t")
				if len(element) == 0 {
					continue
				}

				if !yield(element) {
					return
				}
			}
		}
	}
}

// Keys iterates over unique keys in order of their first appearance.
func (s *Storage) Keys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for i, pair := range s.pairs {
			if s.seenBefore(i, pair.Key) {
				continue
			}

			if !yield(pair.Key) {
				return
			}
		}
	}
}

func (s *Storage) seenBefore(index int, key string) bool {
	for _, pair := range s.pairs[:index] {
		if s.equal(pair.Key, key) {
			return true
		}
	}

	return false
}

// Pairs iterates over all the pairs in order of insertion.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Has indicates, whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return s.Len() == 0
}

// Clone creates a deep copy, which may be used later or stored somewhere safely.
func (s *Storage) Clone() *Storage {
	return &Storage{
		pairs:         append([]Pair(nil), s.pairs...),
		caseSensitive: s.caseSensitive,
	}
}

// Expose exposes the underlying pairs slice.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear all the entries. However, all the allocated space won't be freed.
func (s *Storage) Clear() *Storage {
	clear(s.pairs)
	s.pairs = s.pairs[:0]
	return s
}

func (s *Storage) equal(a, b string) bool {
	if s.caseSensitive {
		return a == b
	}

	return strcomp.EqualFold(a, b)
}
