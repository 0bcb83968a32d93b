package http

import (
	"errors"
	"io"

	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/mime"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

// BodyCallback receives pieces of the body as they arrive. The piece is valid only until
// the callback returns.
type BodyCallback func([]byte) error

const (
	callbackBufferSize = 4096
	// maxBodyPrealloc limits how much may be allocated at once relying on the declared length.
	maxBodyPrealloc = 1 << 20
)

// Body is the read side of a received message's body. All the methods consume the same
// stream, so for example Bytes called after a partial Read returns only the rest.
type Body struct {
	stream  content.Stream
	headers *headers.Headers
	buff    []byte
	scratch []byte
	err     error
	closed  bool
}

func NewBody(stream content.Stream, h *headers.Headers) *Body {
	b := new(Body)
	b.Reset(stream, h)
	return b
}

// Reset binds the body to another stream.
func (b *Body) Reset(stream content.Stream, h *headers.Headers) {
	b.stream = stream
	b.headers = h
	b.buff = b.buff[:0]
	b.err = nil
	b.closed = false
}

// Read implements io.Reader.
func (b *Body) Read(p []byte) (n int, err error) {
	if b.err != nil {
		return 0, b.err
	}

	n, b.err = b.stream.Read(p)
	return n, b.err
}

// Bytes returns the whole body at once. The result is cached, so consequent calls
// are free.
func (b *Body) Bytes() ([]byte, error) {
	if b.err == nil {
		if length := min(b.stream.Length(), maxBodyPrealloc); length > 0 && cap(b.buff) < int(length) {
			b.buff = make([]byte, 0, length)
		}

		for b.err == nil {
			if len(b.buff) == cap(b.buff) {
				b.buff = append(b.buff, 0)[:len(b.buff)]
			}

			var n int
			n, b.err = b.stream.Read(b.buff[len(b.buff):cap(b.buff)])
			b.buff = b.buff[:len(b.buff)+n]
		}
	}

	if b.err == io.EOF {
		return b.buff, nil
	}

	return nil, b.err
}

// String returns the whole body at once as a string. The string shares the memory with
// the buffer returned by Bytes.
func (b *Body) String() (string, error) {
	data, err := b.Bytes()
	return uf.B2S(data), err
}

// JSON decodes the body into the model. If the message states the Content-Type other
// than application/json, status.ErrUnsupportedMediaType is returned.
func (b *Body) JSON(model any) error {
	if !mime.Complies(mime.JSON, b.headers.Value(headers.ContentType)) {
		return status.ErrUnsupportedMediaType
	}

	data, err := b.Bytes()
	if err != nil {
		return err
	}

	iterator := json.ConfigDefault.BorrowIterator(data)
	iterator.ReadVal(model)
	err = iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// Callback invokes the callback every time there's a piece of body available. If the
// callback returns an error, it's passed back to the caller. The callback isn't notified
// when there's no more data or a networking error occurred.
func (b *Body) Callback(cb BodyCallback) error {
	if b.scratch == nil {
		b.scratch = make([]byte, callbackBufferSize)
	}

	for {
		n, err := b.Read(b.scratch)
		if n > 0 {
			if cbErr := cb(b.scratch[:n]); cbErr != nil {
				return cbErr
			}
		}

		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}

// Discard reads the rest of the body out. If no networking error was encountered, nil
// is returned.
func (b *Body) Discard() error {
	_, err := io.Copy(io.Discard, b)
	return err
}

// Trailers returns trailer fields. They're available only after the body was read till
// the end and only if they were declared.
func (b *Body) Trailers() *headers.Headers {
	return b.stream.Trailers()
}

// Len returns the length of the body, or -1 if it's unknown.
func (b *Body) Len() int64 {
	return b.stream.Length()
}

// Stream returns the underlying stream, e.g. to send it further as is.
func (b *Body) Stream() content.Stream {
	return b.stream
}

// Close disposes the body. Following reads fail with status.ErrStreamClosed. Closing
// is idempotent.
func (b *Body) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true

	err := b.stream.Close()
	if errors.Is(err, status.ErrStreamClosed) {
		// the stream was disposed on its own, e.g. by being forwarded
		return nil
	}

	return err
}
