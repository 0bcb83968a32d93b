package status

import (
	"errors"
)

// CloseConnection is a pseudo-code. Errors carrying it must never be answered, the
// connection is just closed.
const CloseConnection Code = 1

// HTTPError is a protocol-level error. The code is what the peer should be answered with.
type HTTPError struct {
	Message string
	Code    Code
	cause   error
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

// NewUnsupported returns an error marking a feature the engine deliberately doesn't
// support. errors.Is(err, errors.ErrUnsupported) holds for it.
func NewUnsupported(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
		cause:   errors.ErrUnsupported,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

func (h HTTPError) Unwrap() error {
	return h.cause
}

// CodeOf extracts the status code out of an error. Errors which aren't HTTPError are
// considered internal.
func CodeOf(err error) Code {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return InternalServerError
}

var (
	ErrCloseConnection = NewError(CloseConnection, "actively closing the connection")
	ErrPeerClosed      = NewError(CloseConnection, "closed socket before sending any data")

	ErrBadRequest            = NewError(BadRequest, "bad request")
	ErrIncompleteHeaders     = NewError(BadRequest, "end of stream while parsing HTTP headers")
	ErrBadRequestLine        = NewError(BadRequest, "malformed request line")
	ErrBadStatusLine         = NewError(BadGateway, "malformed status line")
	ErrBadHeader             = NewError(BadRequest, "malformed header field")
	ErrURIDecoding           = NewError(BadRequest, "invalid urlencoded sequence")
	ErrBadParams             = NewError(BadRequest, "bad URI params")
	ErrBadContentLength      = NewError(BadRequest, "invalid Content-Length value")
	ErrBadChunk              = NewError(BadRequest, "malformed chunk-encoded data")
	ErrTruncatedBody         = NewError(BadRequest, "connection closed in the middle of a body")
	ErrBadUpgrade            = NewError(BadRequest, "malformed websocket handshake")
	ErrHeaderFieldsTooLarge  = NewError(RequestHeaderFieldsTooLarge, "header block exceeds the size limit")
	ErrTooManyHeaders        = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrBodyTooLarge          = NewError(RequestEntityTooLarge, "body is too large")
	ErrNotFound              = NewError(NotFound, "not found")
	ErrMethodNotAllowed      = NewError(MethodNotAllowed, "method not allowed")
	ErrInternalServerError   = NewError(InternalServerError, "internal server error")
	ErrMethodNotImplemented  = NewError(NotImplemented, "request method is not supported")
	ErrUnsupportedMediaType  = NewError(UnsupportedMediaType, "unsupported media type")
	ErrUnsupportedEncoding   = NewUnsupported(NotImplemented, "transfer encoding is not supported")
	ErrChunkedNotAllowed     = NewUnsupported(BadRequest, "chunked transfer encoding is not allowed in HTTP/1.0")
	ErrExpectationFailed     = NewUnsupported(ExpectationFailed, "expectation is not supported")
	ErrUnsupportedProtocol   = NewUnsupported(HTTPVersionNotSupported, "HTTP version not supported")
	ErrServiceUnavailable    = NewError(ServiceUnavailable, "service unavailable")
	ErrUnexpectedInformation = NewError(BadGateway, "too many interim responses")
)
