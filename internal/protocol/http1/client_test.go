package http1

import (
	"context"
	"io"
	"net"
	"slices"
	"strconv"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/router/simple"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/indigo-web/rawhttp/transport/dummy"
	"github.com/stretchr/testify/require"
)

func newClient(cfg *config.Config, responses string) (*Client, *dummy.Client) {
	conn := dummy.NewMockClient([]byte(responses))
	return NewClient(cfg, conn, "example.com", nil), conn
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("simple", func(t *testing.T) {
		client, conn := newClient(config.Default(), "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)

		want := "GET / HTTP/1.1\r\nHost: example.com\r\nTE: trailers\r\nConnection: TE\r\n\r\n"
		require.Equal(t, want, conn.Written())
		require.Equal(t, status.OK, resp.Code)
		require.True(t, resp.KeepAlive)

		body, err := resp.Body.String()
		require.NoError(t, err)
		require.Equal(t, "hello", body)
	})

	t.Run("HTTP/1.0", func(t *testing.T) {
		client, conn := newClient(config.Default(), "HTTP/1.0 200 OK\r\nContent-Length: 0\r\n\r\n")
		req := http.NewOutgoingRequest(method.POST, "/").Protocol(proto.HTTP10).String("hi")
		resp, err := client.Exchange(ctx, req)
		require.NoError(t, err)
		require.Equal(t, "POST / HTTP/1.0\r\nContent-Length: 2\r\n\r\nhi", conn.Written())
		require.False(t, resp.KeepAlive)
	})

	t.Run("interim responses are skipped", func(t *testing.T) {
		client, _ := newClient(config.Default(),
			"HTTP/1.1 100 Continue\r\n\r\n"+
				"HTTP/1.1 103 Early Hints\r\nLink: </style.css>\r\n\r\n"+
				"HTTP/1.1 201 Created\r\nContent-Length: 2\r\n\r\nok",
		)
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, status.Created, resp.Code)
		require.False(t, resp.Headers.Has("Link"))
	})

	t.Run("too many interim responses", func(t *testing.T) {
		cfg := config.Default()
		cfg.HTTP.MaxInterimResponses = 1
		client, _ := newClient(cfg,
			"HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 200 OK\r\n\r\n",
		)
		_, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.ErrorIs(t, err, status.ErrUnexpectedInformation)
	})

	t.Run("switching protocols", func(t *testing.T) {
		client, _ := newClient(config.Default(), "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\n\r\n")
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, status.SwitchingProtocols, resp.Code)
		require.False(t, resp.KeepAlive)
	})

	t.Run("connection reuse", func(t *testing.T) {
		client, _ := newClient(config.Default(),
			"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nfirst"+
				"HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nsecond",
		)
		_, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/1"))
		require.NoError(t, err)

		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/2"))
		require.NoError(t, err)
		body, err := resp.Body.String()
		require.NoError(t, err)
		require.Equal(t, "second", body)
	})

	t.Run("not persistent", func(t *testing.T) {
		client, _ := newClient(config.Default(), "HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)
		require.False(t, resp.KeepAlive)

		_, err = client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.ErrorIs(t, err, status.ErrCloseConnection)
	})

	t.Run("trailers", func(t *testing.T) {
		client, _ := newClient(config.Default(),
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\nTrailer: X-Sum\r\n\r\n"+
				"2\r\nok\r\n0\r\nX-Sum: 7\r\n\r\n",
		)
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)
		require.Equal(t, []string{"X-Sum"}, slices.Collect(resp.DeclaredTrailers()))

		body, err := resp.Body.String()
		require.NoError(t, err)
		require.Equal(t, "ok", body)
		require.Equal(t, "7", resp.Body.Trailers().Value("x-sum"))
	})

	t.Run("server timing", func(t *testing.T) {
		client, _ := newClient(config.Default(), "HTTP/1.1 204 No Content\r\nServer-Timing: app;dur=1.5\r\n\r\n")
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.NoError(t, err)
		elapsed, ok := resp.ServerTime()
		require.True(t, ok)
		require.Equal(t, "1.5ms", elapsed.String())
	})

	t.Run("cancelled context", func(t *testing.T) {
		client, conn := newClient(config.Default(), "HTTP/1.1 200 OK\r\n\r\n")
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := client.Exchange(cancelled, http.NewOutgoingRequest(method.GET, "/"))
		require.ErrorIs(t, err, context.Canceled)
		require.Empty(t, conn.Written())
	})

	t.Run("truncated response", func(t *testing.T) {
		client, _ := newClient(config.Default(), "HTTP/1.1 200 OK\r\n")
		_, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)

		_, err = client.Exchange(ctx, http.NewOutgoingRequest(method.GET, "/"))
		require.ErrorIs(t, err, status.ErrCloseConnection)
	})

	t.Run("close", func(t *testing.T) {
		client, conn := newClient(config.Default(), "")
		require.NoError(t, client.Close())
		require.True(t, conn.Closed())
	})
}

func TestClientServer(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	serverConn, clientConn := net.Pipe()

	server := NewServer(cfg, simple.New(bodyEcho, nil), Upgrades{}, nil)
	done := make(chan struct{})
	go func() {
		server.Serve(ctx, transport.NewClient(ctx, serverConn, cfg.NET))
		close(done)
	}()

	client := NewClient(cfg, transport.NewClient(ctx, clientConn, cfg.NET), "localhost", nil)

	for _, size := range []int{0, 1, cfg.NET.MaxChunkSize, cfg.NET.MaxChunkSize + 1, 4*1024*1024 + 3} {
		payload := ""
		if size > 0 {
			payload = uniuri.NewLen(size)
		}

		for _, length := range []int64{int64(size), -1} {
			req := http.NewOutgoingRequest(method.POST, "/echo").
				Stream(unknownLength(payload), length)
			resp, err := client.Exchange(ctx, req)
			require.NoError(t, err, "size %d, length %d", size, length)
			require.Equal(t, status.OK, resp.Code)
			require.Equal(t, strconv.Itoa(size), resp.Headers.Value("content-length"))

			_, ok := resp.ServerTime()
			require.True(t, ok)

			body, err := resp.Body.String()
			require.NoError(t, err)
			require.Equal(t, payload, body)
		}
	}

	require.NoError(t, client.Close())
	<-done
}
