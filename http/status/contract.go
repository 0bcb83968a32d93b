package status

import (
	"errors"
)

// ContractError reports a programming mistake of the caller rather than anything happened
// on the wire. Contract errors are never sent to the peer.
type ContractError struct {
	Message string
}

func (c *ContractError) Error() string {
	return "contract violation: " + c.Message
}

// IsContract reports whether the error (or anything it wraps) is a ContractError.
func IsContract(err error) bool {
	var contract *ContractError
	return errors.As(err, &contract)
}

// Violation builds a new ContractError.
func Violation(message string) error {
	return &ContractError{Message: message}
}

var (
	ErrStreamClosed         = Violation("content stream is already closed")
	ErrManualTrailerHeader  = Violation("the Trailer header is computed from declared trailers and must not be set")
	ErrTrailersWithoutFunc  = Violation("trailer names are declared but no trailer func is set")
	ErrReservedTrailer      = Violation("the field must not be sent as a trailer")
	ErrUndeclaredTrailer    = Violation("trailer func produced a trailer that wasn't declared")
	ErrAlreadyResponded     = Violation("response to this request is already written")
	ErrHeaderValueMalformed = Violation("header value must not contain CR or LF")
	ErrPipedRequestBody     = Violation("the request body must not be sent back as the response body")
)
