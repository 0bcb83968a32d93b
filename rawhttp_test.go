package rawhttp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/router/simple"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

func TestApp(t *testing.T) {
	cfg := config.Default()
	cfg.NET.AcceptLoopInterruptPeriod = 20 * time.Millisecond
	addr := freeAddr(t)

	started, stopped := make(chan struct{}), make(chan struct{})
	app := New(addr).
		Tune(cfg).
		NotifyOnStart(func() { close(started) }).
		NotifyOnStop(func() { close(stopped) })

	r := simple.New(func(request *http.Request) *http.Response {
		return http.String(request, request.Path)
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- app.Serve(ctx, r)
	}()
	<-started

	client, err := Dial(ctx, addr)
	require.NoError(t, err)

	for _, path := range []string{"/", "/hello", "/hello/world"} {
		resp, err := client.Exchange(ctx, http.NewOutgoingRequest(method.GET, path))
		require.NoError(t, err)
		require.Equal(t, status.OK, resp.Code)
		require.True(t, resp.KeepAlive)

		body, err := resp.Body.String()
		require.NoError(t, err)
		require.Equal(t, path, body)
	}

	require.NoError(t, client.Close())
	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "app did not stop on time")
	}

	<-stopped
}

func TestApp_NoRouter(t *testing.T) {
	require.ErrorIs(t, New("127.0.0.1:0").Serve(context.Background(), nil), ErrNoRouter)
}

func TestApp_BadCertificate(t *testing.T) {
	err := New(freeAddr(t)).
		TLS(freeAddr(t), "nonexistent.crt", "nonexistent.key").
		Serve(context.Background(), simple.New(http.Respond, nil))
	require.Error(t, err)
}

func TestIsLocalhost(t *testing.T) {
	for addr, want := range map[string]bool{
		"localhost:443":   true,
		"127.0.0.1:8443":  true,
		"[::1]:443":       true,
		":443":            true,
		"0.0.0.0:443":     true,
		"example.com:443": false,
		"10.0.0.1:443":    false,
	} {
		require.Equal(t, want, isLocalhost(addr), addr)
	}
}
