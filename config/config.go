package config

import (
	"math"
	"time"

	"github.com/indigo-web/rawhttp/http/proto"
)

type (
	URI struct {
		// CaseSensitiveParams controls whether query parameter keys are compared case-sensitively.
		CaseSensitiveParams bool `test:"nullable"`
		// ParamsPrealloc is the initial capacity of http.Request.Params.
		ParamsPrealloc int
	}

	Headers struct {
		// MaxBlockSize limits the total length of a headers block, including the start-line
		// and the terminating blank line. Exceeding it is considered malicious and fails the
		// request with status.ErrHeaderFieldsTooLarge.
		MaxBlockSize int
		// MaxNumber is the maximal number of header lines in a single block.
		MaxNumber int
		// Prealloc is the initial capacity of the headers storage.
		Prealloc int
		// InternCapacity is the number of distinct strings the interning cache may hold.
		InternCapacity int
		// InternMaxLength limits the length of header names and values going through
		// the interning cache. Values of credential-bearing headers are never cached.
		InternMaxLength int
		// PathInternMaxLength does the same for request paths.
		PathInternMaxLength int
	}

	Body struct {
		// MaxSize describes the maximal size of a body, that can be processed. 0 will discard
		// any request with body (each call to request's body will result in status.ErrBodyTooLarge).
		// In order to disable the setting, use the math.MaxInt64 value.
		MaxSize int64
		// MaxChunkLine limits the length of a chunk-size line, extensions included.
		MaxChunkLine int
		// MaxDrain is how many unread body bytes are discarded before writing a response in
		// order to keep the connection usable. If there's more left, the connection is closed
		// after the response instead.
		MaxDrain int64
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration
		// WriteTimeout limits how long a single write may block.
		WriteTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
		// WriteBufferSize is the capacity of a scratch buffer, where outgoing messages are
		// accumulated before being flushed. It's flushed once it's three quarters full.
		WriteBufferSize int
		// MaxChunkSize is the maximal length of a single chunk produced when a body of an
		// unknown length is sent chunked.
		MaxChunkSize int
		// ReusePort enables SO_REUSEPORT on listeners, so multiple processes may share one
		// address.
		ReusePort bool `test:"nullable"`
	}

	HTTP struct {
		// Only10 restricts the server to HTTP/1.0: responses are sent as HTTP/1.0 and
		// features requiring HTTP/1.1 are rejected.
		Only10 bool `test:"nullable"`
		// DefaultProtocol is used for the responses when a request's protocol is unknown yet,
		// e.g. because the request line was malformed.
		DefaultProtocol proto.Protocol
		// ServerTiming enables the Server-Timing header on every response, reporting how long
		// it took since the request head was read.
		ServerTiming bool
		// MaxInterimResponses limits how many 1xx responses a client skips before the final one.
		MaxInterimResponses int
	}
)

// Config holds settings used across various parts of rawhttp, mainly restrictions, limitations
// and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	URI     URI
	Headers Headers
	Body    Body
	NET     NET
	HTTP    HTTP
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		URI: URI{
			CaseSensitiveParams: false,
			ParamsPrealloc:      5,
		},
		Headers: Headers{
			MaxBlockSize:        256 * 1024,
			MaxNumber:           100,
			Prealloc:            10,
			InternCapacity:      1024,
			InternMaxLength:     128,
			PathInternMaxLength: 16,
		},
		Body: Body{
			MaxSize:      512 * 1024 * 1024, // 512 megabytes
			MaxChunkLine: 4 * 1024,
			MaxDrain:     4 * 1024 * 1024,
		},
		NET: NET{
			ReadBufferSize:            4 * 1024, // 4kb is more than enough for ordinary requests.
			ReadTimeout:               90 * time.Second,
			WriteTimeout:              30 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteBufferSize:           64 * 1024,
			MaxChunkSize:              16 * 1024,
		},
		HTTP: HTTP{
			DefaultProtocol:     proto.HTTP11,
			ServerTiming:        true,
			MaxInterimResponses: 10,
		},
	}
}

// Unlimited is a convenience value for limits which should be disabled.
const Unlimited = math.MaxInt64
