package content

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/transport/dummy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func chunkedConfig() ChunkedConfig {
	return ChunkedConfig{
		MaxSize:         1 << 30,
		MaxLineLength:   4096,
		MaxTrailersSize: 4096,
		DeclaredLength:  -1,
	}
}

// scatter feeds the sample in pieces of every possible size.
func scatter(sample []byte, fn func(client *dummy.Client)) {
	for n := 1; n <= len(sample); n++ {
		fn(dummy.NewSplitClient(sample, n))
	}
}

func TestEmpty(t *testing.T) {
	n, err := Empty.Read(make([]byte, 10))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, Empty.Length())
	require.Nil(t, Empty.Trailers())
	require.NoError(t, Empty.Close())
}

func TestFixed(t *testing.T) {
	t.Run("exact length", func(t *testing.T) {
		sample := []byte("Hello, world!GET / HTTP/1.1\r\n\r\n")
		scatter(sample, func(client *dummy.Client) {
			body := NewFixed(client, 13)
			data, err := io.ReadAll(body)
			require.NoError(t, err)
			require.Equal(t, "Hello, world!", string(data))
			require.Equal(t, int64(13), body.Transferred())

			rest, err := io.ReadAll(readerOf(client))
			require.NoError(t, err)
			require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(rest))
		})
	})

	t.Run("small reads", func(t *testing.T) {
		body := NewFixed(dummy.NewMockClient([]byte("abcdef")), 5)
		buff := make([]byte, 2)
		var got []byte

		for {
			n, err := body.Read(buff)
			got = append(got, buff[:n]...)
			if err == io.EOF {
				break
			}

			require.NoError(t, err)
		}

		require.Equal(t, "abcde", string(got))
	})

	t.Run("zero length doesn't touch the connection", func(t *testing.T) {
		client := dummy.NewMockClient([]byte("next"))
		n, err := NewFixed(client, 0).Read(make([]byte, 4))
		require.Zero(t, n)
		require.ErrorIs(t, err, io.EOF)

		data, err := client.Read()
		require.NoError(t, err)
		require.Equal(t, "next", string(data))
	})

	t.Run("peer closed before the body", func(t *testing.T) {
		body := NewFixed(dummy.NewMockClient(), 10)
		data, err := io.ReadAll(body)
		require.ErrorIs(t, err, status.ErrTruncatedBody)
		require.Empty(t, data)
		require.Equal(t, int64(10), body.Length())
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := io.ReadAll(NewFixed(dummy.NewMockClient([]byte("1234567")), 10))
		require.ErrorIs(t, err, status.ErrTruncatedBody)
	})

	t.Run("closed", func(t *testing.T) {
		body := NewFixed(dummy.NewMockClient([]byte("abc")), 3)
		require.NoError(t, body.Close())
		_, err := body.Read(make([]byte, 3))
		require.True(t, status.IsContract(err))
		require.True(t, status.IsContract(body.Close()))
	})
}

func TestChunked(t *testing.T) {
	readAll := func(t *testing.T, client *dummy.Client, cfg ChunkedConfig) (*Chunked, string) {
		body := NewChunked(client, cfg, nil)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		return body, string(data)
	}

	t.Run("basic", func(t *testing.T) {
		sample := []byte("d\r\nHello, world!\r\n1a\r\nBut what's wrong with you?\r\nf\r\nFinally am here\r\n0\r\n\r\nGET")
		scatter(sample, func(client *dummy.Client) {
			body, data := readAll(t, client, chunkedConfig())
			require.Equal(t, "Hello, world!But what's wrong with you?Finally am here", data)
			require.Equal(t, int64(len(data)), body.Transferred())
			require.Nil(t, body.Trailers())

			rest, err := io.ReadAll(readerOf(client))
			require.NoError(t, err)
			require.Equal(t, "GET", string(rest))
		})
	})

	t.Run("uppercase and lowercase hex", func(t *testing.T) {
		sample := []byte("A\r\n0123456789\r\na\r\n0123456789\r\n0\r\n\r\n")
		_, data := readAll(t, dummy.NewMockClient(sample), chunkedConfig())
		require.Equal(t, strings.Repeat("0123456789", 2), data)
	})

	t.Run("zero chunk without trailers", func(t *testing.T) {
		cfg := chunkedConfig()
		cfg.ExpectTrailers = true
		body, data := readAll(t, dummy.NewMockClient([]byte("0\r\n\r\n")), cfg)
		require.Empty(t, data)
		require.NotNil(t, body.Trailers())
		require.Zero(t, body.Trailers().Len())
	})

	t.Run("declared trailers", func(t *testing.T) {
		sample := []byte("7\r\nMozilla\r\n0\r\nExpires: Wed, 21 Oct 2015 07:28:00 GMT\r\nX-Checksum: 42\r\n\r\nnext")
		scatter(sample, func(client *dummy.Client) {
			cfg := chunkedConfig()
			cfg.ExpectTrailers = true
			body, data := readAll(t, client, cfg)
			require.Equal(t, "Mozilla", data)
			require.Equal(t, "Wed, 21 Oct 2015 07:28:00 GMT", body.Trailers().Value("expires"))
			require.Equal(t, "42", body.Trailers().Value("x-checksum"))

			rest, err := io.ReadAll(readerOf(client))
			require.NoError(t, err)
			require.Equal(t, "next", string(rest))
		})
	})

	t.Run("undeclared trailers are discarded", func(t *testing.T) {
		body, data := readAll(t, dummy.NewMockClient([]byte("1\r\na\r\n0\r\nX-Sum: 1\r\n\r\n")), chunkedConfig())
		require.Equal(t, "a", data)
		require.Nil(t, body.Trailers())
	})

	t.Run("extensions", func(t *testing.T) {
		sample := []byte("5;name=value\r\nhello\r\n5 ; flag\r\nworld\r\n0;last\r\n\r\n")
		scatter(sample, func(client *dummy.Client) {
			_, data := readAll(t, client, chunkedConfig())
			require.Equal(t, "helloworld", data)
		})
	})

	t.Run("content length mismatch is a warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		cfg := chunkedConfig()
		cfg.DeclaredLength = 10

		body := NewChunked(dummy.NewMockClient([]byte("7\r\n1234567\r\n0\r\n\r\n")), cfg, zap.New(core))
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		require.Equal(t, "1234567", string(data))
		require.Equal(t, 1, logs.Len())

		entry := logs.All()[0]
		require.Equal(t, zapcore.WarnLevel, entry.Level)
		require.Equal(t, int64(10), entry.ContextMap()["declared"])
		require.Equal(t, int64(7), entry.ContextMap()["transferred"])
	})

	t.Run("matching content length is silent", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		cfg := chunkedConfig()
		cfg.DeclaredLength = 7

		_, err := io.ReadAll(NewChunked(dummy.NewMockClient([]byte("7\r\n1234567\r\n0\r\n\r\n")), cfg, zap.New(core)))
		require.NoError(t, err)
		require.Zero(t, logs.Len())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, sample := range []string{
			"g\r\nhello\r\n0\r\n\r\n",
			"\r\nhello\r\n0\r\n\r\n",
			"5\r\nhelloX\r\n0\r\n\r\n",
			"5\r\nhello\rX0\r\n\r\n",
			"5\r\nhello\n\r0\r\n\r\n",
			"1000000000000000\r\n",
			"5;bad\x00ext\r\nhello\r\n0\r\n\r\n",
			"0\r\nBad Trailer\r\n\r\n",
		} {
			body := NewChunked(dummy.NewMockClient([]byte(sample)), chunkedConfig(), nil)
			_, err := io.ReadAll(body)
			require.Error(t, err, sample)

			_, again := body.Read(make([]byte, 8))
			require.Equal(t, err, again, "the error must stick")
		}
	})

	t.Run("bad chunk errors", func(t *testing.T) {
		_, err := io.ReadAll(NewChunked(dummy.NewMockClient([]byte("5\r\nhelloX")), chunkedConfig(), nil))
		require.EqualError(t, err, status.ErrBadChunk.Error())
	})

	t.Run("too long size line", func(t *testing.T) {
		cfg := chunkedConfig()
		cfg.MaxLineLength = 8
		_, err := io.ReadAll(NewChunked(dummy.NewMockClient([]byte("5;long-extension\r\nhello\r\n")), cfg, nil))
		require.ErrorIs(t, err, status.ErrBadChunk)
	})

	t.Run("body too large", func(t *testing.T) {
		cfg := chunkedConfig()
		cfg.MaxSize = 8
		_, err := io.ReadAll(NewChunked(dummy.NewMockClient([]byte("5\r\nhello\r\n5\r\nworld\r\n0\r\n\r\n")), cfg, nil))
		require.ErrorIs(t, err, status.ErrBodyTooLarge)
	})

	t.Run("truncated", func(t *testing.T) {
		for _, sample := range []string{"5\r\nhel", "5\r\nhello", "5\r\nhello\r\n", "5\r\nhello\r\n0\r\n"} {
			_, err := io.ReadAll(NewChunked(dummy.NewMockClient([]byte(sample)), chunkedConfig(), nil))
			require.ErrorIs(t, err, status.ErrTruncatedBody, sample)
		}
	})

	t.Run("peer closed before the body", func(t *testing.T) {
		data, err := io.ReadAll(NewChunked(dummy.NewMockClient(), chunkedConfig(), nil))
		require.ErrorIs(t, err, status.ErrTruncatedBody)
		require.Empty(t, data)
	})
}

func TestWrapper(t *testing.T) {
	closer := &closeTracker{Reader: strings.NewReader("payload")}
	stream := Wrap(closer, 7)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
	require.Equal(t, int64(7), stream.Transferred())
	require.Equal(t, int64(7), stream.Length())

	require.NoError(t, stream.Close())
	require.True(t, closer.closed)
	_, err = stream.Read(nil)
	require.ErrorIs(t, err, status.ErrStreamClosed)
}

func TestDrain(t *testing.T) {
	t.Run("closed stream is still drained", func(t *testing.T) {
		client := dummy.NewMockClient([]byte("5\r\nhello\r\n0\r\n\r\nnext"))
		body := NewChunked(client, chunkedConfig(), nil)
		require.NoError(t, body.Close())
		require.NoError(t, Drain(body, 1024))

		rest, err := client.Read()
		require.NoError(t, err)
		require.Equal(t, "next", string(rest))
	})

	t.Run("limit", func(t *testing.T) {
		body := NewFixed(dummy.NewMockClient(bytes.Repeat([]byte("a"), 100)), 100)
		require.ErrorIs(t, Drain(body, 10), status.ErrBodyTooLarge)

		body = NewFixed(dummy.NewMockClient(bytes.Repeat([]byte("a"), 100)), 100)
		require.NoError(t, Drain(body, 100))
	})
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

// readerOf reads the rest of the client until io.EOF.
func readerOf(client *dummy.Client) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		data, err := client.Read()
		if err != nil {
			return 0, err
		}

		n := copy(p, data)
		client.Unread(data[n:])

		return n, nil
	})
}
