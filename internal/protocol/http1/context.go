package http1

import (
	"time"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
)

// Context is the state of a single request-response exchange on a connection. A fresh one
// is used for every exchange.
type Context struct {
	// protocol is the one the response is sent with.
	protocol  proto.Protocol
	keepAlive bool
	// trailers is set if the client stated it accepts trailers via TE.
	trailers  bool
	started   time.Time
	responded bool
}

func (c *Context) reset() {
	*c = Context{}
}

// respond marks the final response as written. A response may be written only once
// per exchange.
func (c *Context) respond() error {
	if c.responded {
		return status.ErrAlreadyResponded
	}

	c.responded = true
	return nil
}

// keepAlive tells whether the connection persists after the message. HTTP/1.1 connections
// are persistent unless closed explicitly, HTTP/1.0 ones must explicitly ask for it.
func keepAlive(protocol proto.Protocol, h *headers.Headers) bool {
	if protocol >= proto.HTTP11 {
		return !h.ContainsToken(headers.Connection, "close")
	}

	return h.ContainsToken(headers.Connection, "keep-alive")
}

// acceptsTrailers tells whether the request allows trailer fields in the response.
func acceptsTrailers(protocol proto.Protocol, h *headers.Headers) bool {
	return protocol >= proto.HTTP11 && h.ContainsToken(headers.TE, "trailers")
}
