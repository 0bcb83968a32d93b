package http

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/mime"
	"github.com/indigo-web/rawhttp/http/status"
	json "github.com/json-iterator/go"
)

const preallocRespHeaders = 7

// ResponseFields is what the response builder has built.
type ResponseFields struct {
	Outgoing
	Code status.Code
	// Status is the reason phrase. If empty, the one corresponding to the code is used.
	Status status.Status
}

type Response struct {
	fields ResponseFields
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK
// and no body.
// NOTE: it's recommended to use Request.Respond() method inside of handlers, if there's no
// clear reason otherwise
func NewResponse() *Response {
	return &Response{
		fields: ResponseFields{
			Outgoing: newOutgoing(preallocRespHeaders),
			Code:     status.OK,
		},
	}
}

// Code sets a Response code.
func (r *Response) Code(code status.Code) *Response {
	r.fields.Code = code
	return r
}

// Status sets a custom reason phrase. This text does not matter at all, and usually
// totally ignored by client.
func (r *Response) Status(status status.Status) *Response {
	r.fields.Status = status
	return r
}

// Header adds values to the key. Already present values are kept.
func (r *Response) Header(key string, values ...string) *Response {
	for _, value := range values {
		r.fields.Headers.Add(key, value)
	}

	return r
}

// Headers merges passed headers into the Response.
func (r *Response) Headers(headers map[string][]string) *Response {
	for key, values := range headers {
		r.Header(key, values...)
	}

	return r
}

// ContentType sets the Content-Type header, replacing the previous value.
func (r *Response) ContentType(value mime.MIME) *Response {
	r.fields.Headers.Set(headers.ContentType, value)
	return r
}

// String sets the response's body to the passed string
func (r *Response) String(body string) *Response {
	return r.Stream(strings.NewReader(body), int64(len(body)))
}

// Bytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) Bytes(body []byte) *Response {
	return r.Stream(bytes.NewReader(body), int64(len(body)))
}

// Stream sets the reader as the response's body. If the length is unknown, it must be -1.
// In this case the body goes chunked. The reader is closed after the response is sent if
// it implements io.Closer.
func (r *Response) Stream(reader io.Reader, length int64) *Response {
	r.fields.Body = content.Wrap(reader, length)
	return r
}

// TryJSON serializes the model into the response's body.
func (r *Response) TryJSON(model any) (*Response, error) {
	stream := json.ConfigDefault.BorrowStream(nil)
	stream.WriteVal(model)
	err := stream.Error
	body := append([]byte(nil), stream.Buffer()...)
	json.ConfigDefault.ReturnStream(stream)

	if err != nil {
		return r, err
	}

	return r.ContentType(mime.JSON).Bytes(body), nil
}

// JSON does the same as TryJSON does, except returned error is being implicitly wrapped
// by Error
func (r *Response) JSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.Error(err)
	}

	return resp
}

// Trailer declares trailer fields. The func is called once the body is sent and may
// set only the declared fields. Trailers are sent only if the body goes chunked and the
// client stated it accepts them, so they must never be required for the response to
// be understood.
func (r *Response) Trailer(fn TrailerFunc, names ...string) *Response {
	r.fields.TrailerNames = append(r.fields.TrailerNames, names...)
	r.fields.Trailers = fn
	return r
}

// Error returns a response builder with an error set. If passed err is nil, nothing will
// happen. If an instance of status.HTTPError is passed, its code and message are used.
// Otherwise, the response is 500 Internal Server Error.
func (r *Response) Error(err error) *Response {
	if err == nil {
		return r
	}

	var httpErr status.HTTPError
	if errors.As(err, &httpErr) {
		return r.
			Code(httpErr.Code).
			ContentType(mime.Plain).
			String(httpErr.Message)
	}

	return r.
		Code(status.InternalServerError).
		ContentType(mime.Plain).
		String(err.Error())
}

// Proxy makes the response a copy of the received one. End-to-end headers and the body
// are taken as is. The body keeps its framing if its length is known, otherwise it's
// sent chunked. Declared trailers are forwarded too.
func (r *Response) Proxy(src *IncomingResponse) *Response {
	r.fields.Code = src.Code
	r.fields.Status = src.Reason
	r.fields.forward(&src.Incoming)

	return r
}

// Reveal returns a struct with values, filled by builder. Used mostly in internal purposes
func (r *Response) Reveal() *ResponseFields {
	return &r.fields
}

// Clear discards everything was done with Response object before
func (r *Response) Clear() *Response {
	r.fields.Outgoing.reset()
	r.fields.Code = status.OK
	r.fields.Status = ""
	return r
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler
func Respond(request *Request) *Response {
	return request.Respond()
}

// Code is a predicate to request.Respond().Code(...)
func Code(request *Request, code status.Code) *Response {
	return request.Respond().Code(code)
}

// String is a predicate to request.Respond().String(...)
func String(request *Request, str string) *Response {
	return request.Respond().String(str)
}

// Bytes is a predicate to request.Respond().Bytes(...)
func Bytes(request *Request, b []byte) *Response {
	return request.Respond().Bytes(b)
}

// JSON is a predicate to request.Respond().JSON(...)
func JSON(request *Request, model any) *Response {
	return request.Respond().JSON(model)
}

// Error is a predicate to request.Respond().Error(...)
func Error(request *Request, err error) *Response {
	return request.Respond().Error(err)
}
