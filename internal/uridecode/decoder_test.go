package uridecode

import (
	"strings"
	"testing"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("no escaping", func(t *testing.T) {
		str := "/hello"
		decoded, err := Decode([]byte(str), nil, false)
		require.NoError(t, err)
		require.Equal(t, "/hello", string(decoded))
	})

	t.Run("corners", func(t *testing.T) {
		str := "%2fhello%2F"
		decoded, err := Decode([]byte(str), nil, false)
		require.NoError(t, err)
		require.Equal(t, "/hello/", string(decoded))
	})

	t.Run("multiple consecutive", func(t *testing.T) {
		str := "%2f%20hello"
		decoded, err := Decode([]byte(str), nil, false)
		require.NoError(t, err)
		require.Equal(t, "/ hello", string(decoded))
	})

	t.Run("plus", func(t *testing.T) {
		decoded, err := Decode([]byte("a+b%2B"), nil, true)
		require.NoError(t, err)
		require.Equal(t, "a b+", string(decoded))

		decoded, err = Decode([]byte("a+b"), nil, false)
		require.NoError(t, err)
		require.Equal(t, "a+b", string(decoded))
	})

	t.Run("incomplete sequence", func(t *testing.T) {
		for _, str := range []string{"%2", "%", "abc%f"} {
			_, err := Decode([]byte(str), nil, false)
			require.EqualError(t, err, status.ErrURIDecoding.Error())
		}
	})

	t.Run("non-hex sequence", func(t *testing.T) {
		_, err := Decode([]byte("%zz"), nil, false)
		require.EqualError(t, err, status.ErrURIDecoding.Error())
	})

	t.Run("4kb slightly escaped", func(t *testing.T) {
		str := "/" + strings.Repeat("a%5f", 1000)
		decoded, err := Decode([]byte(str), make([]byte, 0, len(str)), false)
		require.NoError(t, err)
		require.Equal(t, "/"+strings.Repeat("a_", 1000), string(decoded))
	})
}
