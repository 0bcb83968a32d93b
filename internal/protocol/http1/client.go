package http1

import (
	"context"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/transport"
	"go.uber.org/zap"
)

// aLongTimeAgo is a non-zero time in the past, used to interrupt pending I/O immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Client sends requests over a single connection, one at a time.
type Client struct {
	cfg        *config.Config
	client     transport.Client
	host       string
	logger     *zap.Logger
	parser     *Parser
	serializer *Serializer
	response   *http.IncomingResponse
	pending    bool
	broken     bool
}

// NewClient returns a client bound to the connection. The host is sent in the Host header
// of HTTP/1.1 requests, unless they set one on their own.
func NewClient(cfg *config.Config, client transport.Client, host string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.Named("http1.client")

	return &Client{
		cfg:        cfg,
		client:     client,
		host:       host,
		logger:     logger,
		parser:     NewParser(cfg, client, nil, nil, logger),
		serializer: NewSerializer(cfg, client, logger),
		response:   http.NewIncomingResponse(cfg),
	}
}

// Exchange writes the request and reads the response head. Interim responses, except 101
// Switching Protocols, are skipped. The context bounds the exchange until the head is read.
//
// The returned response is reused by the next Exchange, and so is the connection: the
// unread rest of the response's body is discarded then. If the response isn't persistent,
// the next Exchange fails with status.ErrCloseConnection.
func (c *Client) Exchange(ctx context.Context, req *http.OutgoingRequest) (*http.IncomingResponse, error) {
	if c.broken {
		return nil, status.ErrCloseConnection
	}

	if err := c.finishPrevious(); err != nil {
		c.broken = true
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.client.Conn().SetDeadline(aLongTimeAgo)
	})
	defer stop()

	resp, err := c.exchange(req.Reveal())
	if err != nil {
		c.broken = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, err
	}

	c.pending = true

	return resp, nil
}

func (c *Client) exchange(req *http.RequestFields) (*http.IncomingResponse, error) {
	if req.Protocol == proto.Unknown {
		req.Protocol = proto.HTTP11
	}

	if req.Protocol >= proto.HTTP11 {
		if !req.Headers.Has(headers.Host) && len(c.host) > 0 {
			req.Headers.Set(headers.Host, c.host)
		}

		if !req.Headers.Has(headers.TE) {
			req.Headers.Set(headers.TE, "trailers")
			req.Headers.Add(headers.Connection, headers.TE)
		}
	}

	persistent := keepAlive(req.Protocol, req.Headers)

	if err := c.serializer.WriteRequest(req); err != nil {
		return nil, err
	}

	resp := c.response

	for interim := 0; ; interim++ {
		resp.Reset()
		if err := c.parser.ReadResponse(resp, req.Method); err != nil {
			return nil, err
		}

		if !resp.Code.Informational() || resp.Code == status.SwitchingProtocols {
			break
		}

		if interim >= c.cfg.HTTP.MaxInterimResponses {
			return nil, status.ErrUnexpectedInformation
		}

		c.logger.Debug("skipping interim response", zap.Uint16("code", uint16(resp.Code)))
	}

	if !persistent || resp.Code == status.SwitchingProtocols {
		resp.KeepAlive = false
	}

	return resp, nil
}

// finishPrevious discards what's left of the previous response, so the connection is ready
// for the next one.
func (c *Client) finishPrevious() error {
	if !c.pending {
		return nil
	}

	c.pending = false

	if !c.response.KeepAlive {
		return status.ErrCloseConnection
	}

	if err := content.Drain(c.response.Body.Stream(), c.cfg.Body.MaxDrain); err != nil {
		return err
	}

	return c.response.Body.Close()
}

// Transport returns the underlying connection, e.g. to take it over after 101 Switching
// Protocols.
func (c *Client) Transport() transport.Client {
	return c.client
}

// Close closes the connection. Following exchanges fail.
func (c *Client) Close() error {
	c.broken = true
	c.serializer.Release()

	return c.client.Close()
}
