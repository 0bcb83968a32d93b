package content

import (
	"io"
	"math"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/status"
)

// Stream is a message body, decoupled from the framing used on the wire. The variants are
// Empty, *Fixed, *Chunked and *Wrapper.
//
// Streams reading off a connection only borrow it and never close it. Closing a stream
// disposes it, any following read fails with status.ErrStreamClosed.
type Stream interface {
	io.ReadCloser
	// Length returns the total length of the stream if it's known in advance, otherwise -1.
	Length() int64
	// Transferred returns the number of bytes read so far.
	Transferred() int64
	// Trailers returns fields received after the body. It's nil unless the stream is chunked,
	// the message declared trailers and the stream was read until the end.
	Trailers() *headers.Headers
}

// Empty is the stream of messages without a body.
var Empty Stream = empty{}

type empty struct{}

func (empty) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (empty) Close() error {
	return nil
}

func (empty) Length() int64 {
	return 0
}

func (empty) Transferred() int64 {
	return 0
}

func (empty) Trailers() *headers.Headers {
	return nil
}

// Drain consumes the rest of the stream, even if it was closed already, so the connection
// is left at the start of the next message. At most limit bytes are consumed, if there's
// more, status.ErrBodyTooLarge is returned.
func Drain(s Stream, limit int64) error {
	var r io.Reader = s
	if d, ok := s.(drainer); ok {
		r = readerFunc(d.read)
	}

	budget := limit
	if budget < math.MaxInt64 {
		// one byte past the limit tells whether there's more
		budget++
	}

	n, err := io.CopyN(io.Discard, r, budget)
	switch {
	case err == io.EOF:
		return nil
	case err != nil:
		return err
	case n > limit:
		return status.ErrBodyTooLarge
	}

	return nil
}

type drainer interface {
	read(p []byte) (int, error)
}

type readerFunc func([]byte) (int, error)

func (r readerFunc) Read(b []byte) (int, error) {
	return r(b)
}
