package rawhttp

import (
	"context"
	"net"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/internal/protocol/http1"
	"github.com/indigo-web/rawhttp/transport"
	"go.uber.org/zap"
)

// Client exchanges requests and responses over a single connection. See http1.Client.
type Client = http1.Client

// Dial connects to the address and returns a client bound to the connection, using the
// default config.
func Dial(ctx context.Context, addr string) (*Client, error) {
	return DialConfig(ctx, addr, config.Default(), nil)
}

// DialConfig is Dial with a custom config and logger. The context bounds dialing only:
// every exchange then takes its own one.
func DialConfig(ctx context.Context, addr string, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(context.WithoutCancel(ctx), conn, cfg.NET)

	return http1.NewClient(cfg, client, addr, logger), nil
}
