package headers

import (
	"slices"
	"testing"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	t.Run("case insensitive", func(t *testing.T) {
		h := New().Add("Content-Type", "text/html")
		require.Equal(t, h.Value("Content-Type"), h.Value("content-type"))
		require.Equal(t, "text/html", h.Value("CONTENT-TYPE"))
	})

	t.Run("value list equivalence", func(t *testing.T) {
		joined := New().Add("Accept-Encoding", "br, gzip")
		separate := New().Add("Accept-Encoding", "br").Add("Accept-Encoding", "gzip")

		require.Equal(t,
			slices.Collect(joined.ValueList("Accept-Encoding")),
			slices.Collect(separate.ValueList("Accept-Encoding")),
		)
		require.Len(t, slices.Collect(joined.ValueList("accept-encoding")), 2)
	})

	t.Run("set replaces the list", func(t *testing.T) {
		h := New().Add("Via", "a").Add("Via", "b").Set("via", "c")
		require.Equal(t, []string{"c"}, slices.Collect(h.Values("Via")))
	})

	t.Run("CR and LF are rejected", func(t *testing.T) {
		for _, value := range []string{"a\r\nInjected: yes", "a\nb", "a\rb"} {
			require.PanicsWithValue(t, status.ErrHeaderValueMalformed, func() {
				New().Add("X-Test", value)
			})
			require.PanicsWithValue(t, status.ErrHeaderValueMalformed, func() {
				New().Set("X-Test", value)
			})
			require.PanicsWithValue(t, status.ErrHeaderValueMalformed, func() {
				NewFromMap(map[string][]string{"X-Test": {"ok", value}})
			})
			require.PanicsWithValue(t, status.ErrHeaderValueMalformed, func() {
				NewPrealloc(2).Add("X-Test", "ok").Clone().Add("X-Test", value)
			})
		}
	})

	t.Run("exposed pairs are a copy", func(t *testing.T) {
		h := New().Add("X-Test", "a")
		pairs := h.Expose()
		pairs[0].Value = "a\r\nInjected: yes"
		require.Equal(t, "a", h.Value("X-Test"))
	})

	t.Run("empty value is kept", func(t *testing.T) {
		h := New().Add("X-Empty", "")
		value, found := h.Get("x-empty")
		require.True(t, found)
		require.Empty(t, value)
	})

	t.Run("tokens", func(t *testing.T) {
		h := New().Add("Connection", "keep-alive, Upgrade").Add("Connection", "HTTP2-Settings")
		require.True(t, h.ContainsToken("connection", "upgrade"))
		require.True(t, h.ContainsToken("Connection", "http2-settings"))
		require.False(t, h.ContainsToken("Connection", "close"))
		require.Equal(t, "keep-alive, Upgrade, HTTP2-Settings", h.Joined("Connection"))
	})

	t.Run("clone is independent", func(t *testing.T) {
		h := New().Add("A", "1")
		clone := h.Clone().Add("B", "2")
		require.Equal(t, 1, h.Len())
		require.Equal(t, 2, clone.Len())
	})
}

func TestTrailerNames(t *testing.T) {
	for _, name := range []string{
		"Transfer-Encoding", "content-length", "Content-Type", "TRAILER", "Content-Encoding",
		"Content-Range", "Host", "Cache-Control", "Max-Forwards", "TE", "Authorization",
		"Set-Cookie", "",
	} {
		require.False(t, IsValidTrailerName(name), name)
	}

	for _, name := range []string{"Expires", "X-Checksum", "Server-Timing"} {
		require.True(t, IsValidTrailerName(name), name)
	}
}
