package http

import (
	"iter"

	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/utils/strcomp"
)

// Incoming holds what received messages, requests on the server side and responses on the
// client side, have in common.
type Incoming struct {
	Protocol proto.Protocol
	// Headers are kept in the order they were received. Lookups are case-insensitive.
	Headers *headers.Headers
	// ContentLength is the declared Content-Length, or -1 if there wasn't any. When the
	// message is chunked as well, it has informational meaning only.
	ContentLength int64
	// Chunked is set if the body is in chunked transfer encoding.
	Chunked bool
	Body    *Body
}

func newIncoming(headersPrealloc int) Incoming {
	h := headers.NewPrealloc(headersPrealloc)

	return Incoming{
		Headers:       h,
		ContentLength: -1,
		Body:          NewBody(content.Empty, h),
	}
}

// DeclaredTrailers iterates over the field names listed in the Trailer header.
func (i *Incoming) DeclaredTrailers() iter.Seq[string] {
	return i.Headers.ValueList(headers.Trailer)
}

func (i *Incoming) reset() {
	i.Protocol = proto.Unknown
	i.Headers.Clear()
	i.ContentLength = -1
	i.Chunked = false
	i.Body.Reset(content.Empty, i.Headers)
}

// TrailerFunc fills the trailers once the body is sent. Only the fields declared
// beforehand may be set.
type TrailerFunc func(trailers *headers.Headers)

// Outgoing holds what messages being sent have in common.
type Outgoing struct {
	Headers *headers.Headers
	// Body is never nil. If its length is unknown, the body is sent chunked, or buffered
	// entirely if the protocol doesn't support chunked encoding.
	Body content.Stream
	// TrailerNames are announced in the Trailer header. Trailers are sent only if the body
	// goes chunked and the peer accepts them.
	TrailerNames []string
	Trailers     TrailerFunc
}

func newOutgoing(headersPrealloc int) Outgoing {
	return Outgoing{
		Headers: headers.NewPrealloc(headersPrealloc),
		Body:    content.Empty,
	}
}

func (o *Outgoing) reset() {
	o.Headers.Clear()
	o.Body = content.Empty
	o.TrailerNames = o.TrailerNames[:0]
	o.Trailers = nil
}

// hopByHop fields describe a single connection, hence never get forwarded.
var hopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Connection",
	headers.TE,
	headers.Trailer,
	headers.TransferEncoding,
	headers.Upgrade,
	headers.ContentLength,
}

// forward copies the message to be sent further: end-to-end headers, the body stream as
// is and the trailers, if any were declared.
func (o *Outgoing) forward(src *Incoming) {
	for key, value := range src.Headers.Pairs() {
		if isHopByHop(key) || src.Headers.ContainsToken(headers.Connection, key) {
			continue
		}

		o.Headers.Add(key, value)
	}

	o.Body = src.Body.Stream()

	var declared []string
	for name := range src.DeclaredTrailers() {
		if headers.IsValidTrailerName(name) {
			declared = append(declared, name)
		}
	}

	if len(declared) == 0 {
		return
	}

	o.TrailerNames = append(o.TrailerNames[:0], declared...)
	o.Trailers = func(trailers *headers.Headers) {
		received := src.Body.Trailers()
		if received == nil {
			return
		}

		for _, name := range declared {
			for value := range received.Values(name) {
				trailers.Add(name, value)
			}
		}
	}
}

func isHopByHop(key string) bool {
	for _, name := range hopByHop {
		if strcomp.EqualFold(key, name) {
			return true
		}
	}

	return false
}
