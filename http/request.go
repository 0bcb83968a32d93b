package http

import (
	"context"
	"net"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/query"
)

var zeroContext = context.Background()

// Request represents an incoming HTTP request.
type Request struct {
	Incoming
	// Method is an enum representing the request method.
	Method method.Method
	// Target is the request-target exactly as it was sent.
	Target string
	// Path is the percent-decoded path of the target.
	Path string
	// Params are request URI parameters.
	Params *query.Params
	// Fragment is whatever follows the first '#' of the target. Browsers never send it,
	// however other clients may.
	Fragment string
	// Remote holds the remote address. Please note that this is generally not a good parameter
	// to identify a user, because there might be proxies in the middle.
	Remote net.Addr
	// Ctx lives as long as the connection does. It's cancelled once the server is shutting
	// down.
	Ctx      context.Context
	response *Response
}

func NewRequest(cfg *config.Config, remote net.Addr) *Request {
	return &Request{
		Incoming: newIncoming(cfg.Headers.Prealloc),
		Method:   method.Unknown,
		Params:   query.New(cfg.URI.CaseSensitiveParams, cfg.URI.ParamsPrealloc),
		Remote:   remote,
		Ctx:      zeroContext,
		response: NewResponse(),
	}
}

// Respond returns the response builder bound to the request.
//
// WARNING: this method clears the response builder under the hood. As it is passed
// by reference, it'll be cleared EVERYWHERE along a handler
func (r *Request) Respond() *Response {
	return r.response.Clear()
}

// Reset the request, so it can be reused for the next one. Ctx is kept, as it belongs
// to the connection.
func (r *Request) Reset() {
	r.Incoming.reset()
	r.Method = method.Unknown
	r.Target = ""
	r.Path = ""
	r.Params.Clear()
	r.Fragment = ""
}
