package http

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/mime"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/utils/strcomp"
	json "github.com/json-iterator/go"
)

// RequestFields is what the request builder has built.
type RequestFields struct {
	Outgoing
	Method method.Method
	// Target is sent as is, so it must be already encoded.
	Target   string
	Protocol proto.Protocol
}

// OutgoingRequest is a request to be sent by the client.
type OutgoingRequest struct {
	fields RequestFields
}

func NewOutgoingRequest(m method.Method, target string) *OutgoingRequest {
	return &OutgoingRequest{
		fields: RequestFields{
			Outgoing: newOutgoing(preallocRespHeaders),
			Method:   m,
			Target:   target,
			Protocol: proto.HTTP11,
		},
	}
}

// Protocol sets the protocol the request is sent with. Defaults to HTTP/1.1.
func (r *OutgoingRequest) Protocol(p proto.Protocol) *OutgoingRequest {
	r.fields.Protocol = p
	return r
}

// Header adds values to the key. Already present values are kept.
func (r *OutgoingRequest) Header(key string, values ...string) *OutgoingRequest {
	for _, value := range values {
		r.fields.Headers.Add(key, value)
	}

	return r
}

func (r *OutgoingRequest) Headers(headers map[string][]string) *OutgoingRequest {
	for key, values := range headers {
		r.Header(key, values...)
	}

	return r
}

func (r *OutgoingRequest) String(body string) *OutgoingRequest {
	return r.Stream(strings.NewReader(body), int64(len(body)))
}

// Bytes sets the request's body to passed slice WITHOUT COPYING.
func (r *OutgoingRequest) Bytes(body []byte) *OutgoingRequest {
	return r.Stream(bytes.NewReader(body), int64(len(body)))
}

// Stream sets the reader as the body. If the length is unknown, it must be -1.
func (r *OutgoingRequest) Stream(reader io.Reader, length int64) *OutgoingRequest {
	r.fields.Body = content.Wrap(reader, length)
	return r
}

// JSON serializes the model into the request's body.
func (r *OutgoingRequest) JSON(model any) (*OutgoingRequest, error) {
	body, err := json.ConfigDefault.Marshal(model)
	if err != nil {
		return r, err
	}

	r.fields.Headers.Set(headers.ContentType, mime.JSON)

	return r.Bytes(body), nil
}

// Trailer declares trailer fields, see Response.Trailer.
func (r *OutgoingRequest) Trailer(fn TrailerFunc, names ...string) *OutgoingRequest {
	r.fields.TrailerNames = append(r.fields.TrailerNames, names...)
	r.fields.Trailers = fn
	return r
}

// Forward makes the request a copy of the received one, so it can be passed further to
// an upstream. The body is streamed as is.
func (r *OutgoingRequest) Forward(src *Request) *OutgoingRequest {
	r.fields.Method = src.Method
	r.fields.Target = src.Target
	r.fields.forward(&src.Incoming)

	return r
}

func (r *OutgoingRequest) Reveal() *RequestFields {
	return &r.fields
}

// IncomingResponse is a response received by the client.
type IncomingResponse struct {
	Incoming
	Code   status.Code
	Reason status.Status
	// KeepAlive tells whether the connection may be used for further requests.
	KeepAlive bool
}

func NewIncomingResponse(cfg *config.Config) *IncomingResponse {
	return &IncomingResponse{
		Incoming: newIncoming(cfg.Headers.Prealloc),
	}
}

// serverTimingMetric is the metric the server reports its processing time by.
const serverTimingMetric = "app"

// ServerTime returns for how long the server was processing the request, as it's
// reported by the Server-Timing header.
func (r *IncomingResponse) ServerTime() (time.Duration, bool) {
	for metric := range r.Headers.ValueList(headers.ServerTiming) {
		name, params, _ := strings.Cut(metric, ";")
		if !strcomp.EqualFold(strings.TrimSpace(name), serverTimingMetric) {
			continue
		}

		for len(params) > 0 {
			var param string
			param, params, _ = strings.Cut(params, ";")
			key, value, _ := strings.Cut(strings.TrimSpace(param), "=")
			if !strcomp.EqualFold(key, "dur") {
				continue
			}

			ms, err := strconv.ParseFloat(value, 64)
			if err != nil || ms < 0 {
				return 0, false
			}

			return time.Duration(ms * float64(time.Millisecond)), true
		}
	}

	return 0, false
}

// Reset the response, so it can be reused for the next one.
func (r *IncomingResponse) Reset() {
	r.Incoming.reset()
	r.Code = 0
	r.Reason = ""
	r.KeepAlive = false
}
