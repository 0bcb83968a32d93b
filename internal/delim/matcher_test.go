package delim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	t.Run("single portion", func(t *testing.T) {
		m := New(CRLFCRLF)
		data := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nbody")
		require.Equal(t, len(data)-len("body")-1, m.Find(data))
	})

	t.Run("byte by byte", func(t *testing.T) {
		m := New(CRLFCRLF)
		data := "Foo: bar\r\n\r\n"
		for i := 0; i < len(data)-1; i++ {
			require.False(t, m.Match(data[i]))
		}

		require.True(t, m.Match(data[len(data)-1]))
		require.Zero(t, m.Pending())
	})

	t.Run("split across portions", func(t *testing.T) {
		m := New(CRLFCRLF)
		require.Equal(t, -1, m.Find([]byte("Foo: bar\r")))
		require.Equal(t, -1, m.Find([]byte("\n\r")))
		require.Equal(t, 0, m.Find([]byte("\nrest")))
	})

	t.Run("resynchronization", func(t *testing.T) {
		m := New(CRLFCRLF)
		require.Equal(t, 4, m.Find([]byte("\r\r\n\r\n")))

		m.Reset()
		require.Equal(t, 6, m.Find([]byte("\r\n\r\r\n\r\n")))

		m.Reset()
		require.Equal(t, -1, m.Find([]byte("\r\n\n\r\n")))
	})

	t.Run("primed", func(t *testing.T) {
		m := New(CRLFCRLF)
		m.Feed(CRLF)
		require.Equal(t, 2, m.Pending())
		require.Equal(t, 1, m.Find([]byte("\r\n")))
	})

	t.Run("pool hands out reset matchers", func(t *testing.T) {
		m := Lines.Acquire()
		m.Match('\r')
		Lines.Release(m)

		m = Lines.Acquire()
		defer Lines.Release(m)
		require.Zero(t, m.Pending())
		require.Equal(t, 1, m.Find(CRLF))
	})
}
