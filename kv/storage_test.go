package kv

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	getHeaders := func() *Storage {
		return New().
			Add("Foo", "bar").
			Add("Hello", "World").
			Add("Lorem", "ipsum").
			Add("hello", "Pavlo")
	}

	t.Run("case insensitive lookup", func(t *testing.T) {
		kv := getHeaders()
		require.Equal(t, kv.Value("Hello"), kv.Value("hello"))
		require.Equal(t, "World", kv.Value("HELLO"))
		require.Equal(t, []string{"World", "Pavlo"}, slices.Collect(kv.Values("hELLo")))
		require.True(t, kv.Has("foo"))
		require.False(t, kv.Has("bar"))
		require.Equal(t, "default", kv.ValueOr("missing", "default"))
	})

	t.Run("case sensitive", func(t *testing.T) {
		kv := NewCaseSensitive().Add("Key", "1").Add("key", "2")
		require.Equal(t, "1", kv.Value("Key"))
		require.Equal(t, "2", kv.Value("key"))
		require.False(t, kv.Has("KEY"))
	})

	t.Run("delete", func(t *testing.T) {
		kv := getHeaders().Delete("HELLO")

		want := []Pair{
			{"Foo", "bar"},
			{"Lorem", "ipsum"},
		}

		require.Equal(t, want, kv.Expose())
	})

	t.Run("set", func(t *testing.T) {
		kv := getHeaders().Set("HELLO", "no more Pavlo")

		want := []Pair{
			{"Foo", "bar"},
			{"HELLO", "no more Pavlo"},
			{"Lorem", "ipsum"},
		}

		require.Equal(t, want, kv.Expose())
	})

	t.Run("set new key", func(t *testing.T) {
		kv := New().
			Add("Pavlo", "the best").
			Set("Glory to", "Ukraine")

		want := []Pair{
			{"Pavlo", "the best"},
			{"Glory to", "Ukraine"},
		}

		require.Equal(t, want, kv.Expose())
	})

	t.Run("keys", func(t *testing.T) {
		require.Equal(t, []string{"Foo", "Hello", "Lorem"}, slices.Collect(getHeaders().Keys()))
		require.Equal(t, []string{"Foo", "Lorem"}, slices.Collect(getHeaders().Delete("hello").Keys()))
	})

	t.Run("value list", func(t *testing.T) {
		joined := New().Add("Accept-Encoding", "br, gzip")
		separate := New().Add("Accept-Encoding", "br").Add("accept-encoding", "gzip")
		want := []string{"br", "gzip"}

		require.Equal(t, want, slices.Collect(joined.ValueList("Accept-Encoding")))
		require.Equal(t, want, slices.Collect(separate.ValueList("Accept-Encoding")))

		sparse := New().Add("TE", " ,trailers,,\tdeflate ,")
		require.Equal(t, []string{"trailers", "deflate"}, slices.Collect(sparse.ValueList("te")))
	})

	t.Run("pairs", func(t *testing.T) {
		var keys []string
		for key := range getHeaders().Pairs() {
			keys = append(keys, key)
		}

		require.Equal(t, []string{"Foo", "Hello", "Lorem", "hello"}, keys)
	})

	t.Run("clone and clear", func(t *testing.T) {
		kv := getHeaders()
		clone := kv.Clone()
		kv.Clear()

		require.True(t, kv.Empty())
		require.Equal(t, 4, clone.Len())
		require.Equal(t, "bar", clone.Value("foo"))
	})
}
