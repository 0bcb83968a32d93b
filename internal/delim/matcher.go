package delim

import (
	"github.com/indigo-web/rawhttp/internal/pool"
)

var (
	CRLF     = []byte("\r\n")
	CRLFCRLF = []byte("\r\n\r\n")
)

// Matcher incrementally looks for the pattern in a stream of bytes, fed in arbitrarily
// sized portions. It holds no references to the fed data.
type Matcher struct {
	pattern []byte
	matched int
}

func New(pattern []byte) *Matcher {
	return &Matcher{pattern: pattern}
}

// Match feeds a single byte and reports whether the pattern has just been completed. After
// completion the matcher starts over.
func (m *Matcher) Match(c byte) bool {
	if c == m.pattern[m.matched] {
		m.matched++
		if m.matched == len(m.pattern) {
			m.matched = 0
			return true
		}

		return false
	}

	// neither CRLF nor CRLFCRLF overlap with themselves except by the leading CR, so checking
	// the first pattern byte is enough to resynchronize
	if c == m.pattern[0] {
		m.matched = 1
	} else {
		m.matched = 0
	}

	return false
}

// Find feeds the whole data and returns the index of the byte completing the pattern, or -1
// if it wasn't completed. The state is retained, so the pattern may begin in one portion and
// end in another.
func (m *Matcher) Find(data []byte) int {
	for i, c := range data {
		if m.Match(c) {
			return i
		}
	}

	return -1
}

// Feed is like Find but discards the result. It's useful to set the matcher into a state,
// where some prefix of the pattern is already seen.
func (m *Matcher) Feed(data []byte) {
	_ = m.Find(data)
}

func (m *Matcher) Reset() {
	m.matched = 0
}

// Pending returns the number of pattern bytes matched so far.
func (m *Matcher) Pending() int {
	return m.matched
}

const poolSize = 256

var (
	// Lines pools CRLF matchers.
	Lines = newPool(CRLF)
	// Blocks pools CRLFCRLF matchers, marking the end of a headers block.
	Blocks = newPool(CRLFCRLF)
)

// Pool hands out matchers already reset. Every Acquire must be paired with a Release,
// usually deferred.
type Pool struct {
	objects *pool.ObjectPool[*Matcher]
}

func newPool(pattern []byte) Pool {
	return Pool{
		objects: pool.NewObjectPool[*Matcher](poolSize, func() *Matcher {
			return New(pattern)
		}),
	}
}

func (p Pool) Acquire() *Matcher {
	m := p.objects.Acquire()
	m.Reset()
	return m
}

func (p Pool) Release(m *Matcher) {
	p.objects.Release(m)
}
