package http1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/http/upgrade"
	"github.com/indigo-web/rawhttp/internal/intern"
	"github.com/indigo-web/rawhttp/router"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Upgrades are the collaborators taking over connections switched to other protocols. The
// connection is closed once the collaborator returns. A nil collaborator disables the
// upgrade, so such requests are served as plain HTTP/1.x ones.
type Upgrades struct {
	WebSocket func(ctx context.Context, req *http.Request, client transport.Client) error
	H2C       func(ctx context.Context, req *http.Request, client transport.Client, settings []http2.Setting) error
}

type state uint8

const (
	stateAwaitingRequest state = iota
	stateReadingHeaders
	stateHandling
	stateWriting
	stateHijacked
	stateClosed
)

// Server serves HTTP/1.x connections. It's safe to serve many connections with a single
// server simultaneously.
type Server struct {
	cfg      *config.Config
	router   router.Router
	upgrades Upgrades
	logger   *zap.Logger
	names    *intern.Cache
	targets  *intern.Cache
}

func NewServer(cfg *config.Config, r router.Router, upgrades Upgrades, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		cfg:      cfg,
		router:   r,
		upgrades: upgrades,
		logger:   logger.Named("http1.server"),
		names:    intern.New(cfg.Headers.InternCapacity, cfg.Headers.InternMaxLength),
		targets:  intern.New(cfg.Headers.InternCapacity, cfg.Headers.PathInternMaxLength),
	}
}

// Serve processes requests from the client one by one until either side closes the
// connection or the context is done. The client is closed once Serve returns.
func (s *Server) Serve(ctx context.Context, client transport.Client) {
	logger := s.logger.With(zap.String("remote", remoteString(client)))
	c := &conn{
		Server:     s,
		ctx:        ctx,
		client:     client,
		logger:     logger,
		parser:     NewParser(s.cfg, client, s.names, s.targets, logger),
		serializer: NewSerializer(s.cfg, client, logger),
		request:    http.NewRequest(s.cfg, client.Remote()),
	}
	c.request.Ctx = ctx

	defer func() {
		c.serializer.Release()
		if err := client.Close(); err != nil {
			logger.Debug("closing connection", zap.Error(err))
		}
	}()

	for c.state != stateClosed && c.state != stateHijacked {
		c.state = c.step()
	}

	logger.Debug("connection closed")
}

// conn is a single connection being served.
type conn struct {
	*Server
	ctx        context.Context
	client     transport.Client
	logger     *zap.Logger
	parser     *Parser
	serializer *Serializer
	request    *http.Request
	response   *http.Response
	exchange   Context
	state      state
}

func (c *conn) step() state {
	switch c.state {
	case stateAwaitingRequest:
		return c.awaitRequest()
	case stateReadingHeaders:
		return c.readHeaders()
	case stateHandling:
		return c.handle()
	case stateWriting:
		return c.writeResponse()
	default:
		panic(fmt.Sprintf("BUG: unexpected connection state: %d", c.state))
	}
}

func (c *conn) awaitRequest() state {
	if err := c.ctx.Err(); err != nil {
		c.logger.Debug("shutting the connection down", zap.Error(err))
		return stateClosed
	}

	c.request.Reset()
	c.exchange.reset()
	c.response = nil

	return stateReadingHeaders
}

func (c *conn) readHeaders() state {
	req := c.request

	err := c.parser.ReadRequest(req)
	c.exchange.started = time.Now()
	if err != nil {
		return c.fail(err)
	}

	c.exchange.protocol = req.Protocol
	if c.cfg.HTTP.Only10 {
		c.exchange.protocol = proto.HTTP10
	}

	c.exchange.keepAlive = keepAlive(c.exchange.protocol, req.Headers)
	c.exchange.trailers = acceptsTrailers(c.exchange.protocol, req.Headers)

	if req.Headers.Has(headers.Expect) {
		if err := c.expect(); err != nil {
			return c.fail(err)
		}
	}

	if c.exchange.protocol < proto.HTTP11 {
		// there are no upgrades in HTTP/1.0
		return stateHandling
	}

	switch upgrade.Choose(req.Headers) {
	case upgrade.WebSocket:
		if c.upgrades.WebSocket != nil {
			return c.upgradeWebSocket()
		}
	case upgrade.H2C:
		if c.upgrades.H2C != nil {
			if next, ok := c.upgradeH2C(); ok {
				return next
			}
		}
	}

	return stateHandling
}

// expect handles the Expect header. The only expectation known is 100-continue, and only
// for HTTP/1.1.
func (c *conn) expect() error {
	if c.exchange.protocol < proto.HTTP11 ||
		!strcomp.EqualFold(c.request.Headers.Value(headers.Expect), "100-continue") {
		return status.ErrExpectationFailed
	}

	return c.serializer.WriteContinue()
}

func (c *conn) upgradeWebSocket() state {
	key, err := upgrade.CheckWebSocket(c.request.Method, c.request.Headers)
	if err != nil {
		return c.fail(err)
	}

	resp := c.request.Respond().
		Code(status.SwitchingProtocols).
		Header(headers.Upgrade, "websocket").
		Header(headers.Connection, "Upgrade").
		Header(headers.SecWebSocketAccept, upgrade.WebSocketAccept(key))

	if err = c.switchProtocols(resp); err != nil {
		c.logger.Warn("writing switching protocols response", zap.Error(err))
		return stateClosed
	}

	if err = c.upgrades.WebSocket(c.ctx, c.request, c.client); err != nil {
		c.logger.Warn("websocket session failed", zap.Error(err))
	}

	return stateHijacked
}

// upgradeH2C switches the connection to HTTP/2 if the settings are valid. Otherwise, the
// upgrade is ignored and false is returned.
func (c *conn) upgradeH2C() (state, bool) {
	settings, err := upgrade.CheckH2C(c.request.Headers)
	if err != nil {
		c.logger.Warn("ignoring h2c upgrade", zap.Error(err))
		return 0, false
	}

	resp := c.request.Respond().
		Code(status.SwitchingProtocols).
		Header(headers.Connection, "Upgrade").
		Header(headers.Upgrade, "h2c")

	if err = c.switchProtocols(resp); err != nil {
		c.logger.Warn("writing switching protocols response", zap.Error(err))
		return stateClosed, true
	}

	if err = c.upgrades.H2C(c.ctx, c.request, c.client, settings); err != nil {
		c.logger.Warn("h2c session failed", zap.Error(err))
	}

	return stateHijacked, true
}

func (c *conn) switchProtocols(resp *http.Response) error {
	if err := c.exchange.respond(); err != nil {
		return err
	}

	fields := resp.Reveal()
	c.addServerTiming(fields)

	return c.serializer.WriteResponse(c.exchange.protocol, c.request.Method, false, fields)
}

func (c *conn) handle() (next state) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", zap.Any("panic", r))
			c.exchange.keepAlive = false
			c.response = c.request.Respond().Error(status.ErrInternalServerError)
			next = stateWriting
		}
	}()

	c.response = notNil(c.request, c.router.OnRequest(c.request))
	if c.response.Reveal().Code == status.CloseConnection {
		c.logger.Debug("the handler closed the connection")
		return stateClosed
	}

	return stateWriting
}

// writeResponse discards whatever the handler left unread from the request body and writes
// the response. The body is always consumed first, so a client writing the whole request
// before reading anything never blocks on a large response.
func (c *conn) writeResponse() state {
	if c.pipesRequestBody(c.response.Reveal().Body) {
		_ = c.exchange.respond()
		c.logger.Error("malformed response", zap.Error(status.ErrPipedRequestBody))
		return stateClosed
	}

	if err := content.Drain(c.request.Body.Stream(), c.cfg.Body.MaxDrain); err != nil {
		c.logger.Debug("request body can't be drained, closing after the response", zap.Error(err))
		c.exchange.keepAlive = false
	}

	if err := c.write(c.response); err != nil {
		if status.IsContract(err) {
			c.logger.Error("malformed response", zap.Error(err))
		} else {
			c.logger.Warn("writing response", zap.Error(err))
		}

		return stateClosed
	}

	if err := c.request.Body.Close(); err != nil {
		c.logger.Debug("closing request body", zap.Error(err))
	}

	if !c.exchange.keepAlive {
		c.logger.Debug("the exchange isn't persistent, closing the connection")
		return stateClosed
	}

	return stateAwaitingRequest
}

// write writes the final response, stating whether the connection persists.
func (c *conn) write(resp *http.Response) error {
	if err := c.exchange.respond(); err != nil {
		return err
	}

	fields := resp.Reveal()
	closing := fields.Headers.ContainsToken(headers.Connection, "close")
	if closing {
		c.exchange.keepAlive = false
	}

	c.addServerTiming(fields)

	switch {
	case !c.exchange.keepAlive && c.exchange.protocol >= proto.HTTP11 && !closing:
		fields.Headers.Add(headers.Connection, "close")
	case c.exchange.keepAlive && c.exchange.protocol < proto.HTTP11:
		fields.Headers.Add(headers.Connection, "keep-alive")
	}

	return c.serializer.WriteResponse(c.exchange.protocol, c.request.Method, c.exchange.trailers, fields)
}

// fail answers the error if it's worth answering and closes the connection.
func (c *conn) fail(err error) state {
	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code == status.CloseConnection {
		c.router.OnError(c.request, status.ErrCloseConnection)

		switch {
		case errors.Is(err, status.ErrPeerClosed), c.ctx.Err() != nil:
			c.logger.Debug("connection closed while awaiting a request", zap.Error(err))
		default:
			c.logger.Warn("reading request", zap.Error(err))
		}

		return stateClosed
	}

	c.logger.Warn("malformed request", zap.Error(err), zap.Uint16("code", uint16(httpErr.Code)))

	if c.exchange.protocol == proto.Unknown {
		c.exchange.protocol = c.request.Protocol
		if c.exchange.protocol == proto.Unknown {
			c.exchange.protocol = c.cfg.HTTP.DefaultProtocol
		}
	}

	c.exchange.keepAlive = false
	c.exchange.trailers = false

	resp := notNil(c.request, c.router.OnError(c.request, err))
	if resp.Reveal().Code == status.CloseConnection {
		return stateClosed
	}

	if err = c.write(resp); err != nil {
		c.logger.Debug("writing error response", zap.Error(err))
	}

	return stateClosed
}

func notNil(req *http.Request, resp *http.Response) *http.Response {
	if resp != nil {
		return resp
	}

	return req.Respond().Error(status.ErrInternalServerError)
}

// pipesRequestBody tells whether the response body reads from the request body. It's
// drained before the response is written, so such a response could never be sent.
func (c *conn) pipesRequestBody(body content.Stream) bool {
	src := c.request.Body.Stream()
	if src == content.Empty {
		return false
	}

	if body == src {
		return true
	}

	if w, ok := body.(*content.Wrapper); ok {
		r := w.Reader()
		return r == io.Reader(c.request.Body) || r == io.Reader(src)
	}

	return false
}

// addServerTiming reports the time passed since the request head was read.
func (c *conn) addServerTiming(fields *http.ResponseFields) {
	if c.cfg.HTTP.ServerTiming {
		fields.Headers.Add(headers.ServerTiming, serverTiming(time.Since(c.exchange.started)))
	}
}

// serverTiming formats the Server-Timing metric with the duration in milliseconds.
func serverTiming(elapsed time.Duration) string {
	ms := float64(elapsed.Microseconds()) / 1000
	return "app;dur=" + strconv.FormatFloat(ms, 'f', -1, 64)
}

func remoteString(client transport.Client) string {
	if addr := client.Remote(); addr != nil {
		return addr.String()
	}

	return ""
}
