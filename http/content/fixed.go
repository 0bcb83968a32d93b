package content

import (
	"errors"
	"io"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/transport"
)

var _ Stream = new(Fixed)

// Fixed is a body of a length declared via Content-Length.
type Fixed struct {
	client      transport.Client
	length      int64
	transferred int64
	closed      bool
}

// NewFixed returns a stream reading exactly length bytes off the client. The client is
// borrowed.
func NewFixed(client transport.Client, length int64) *Fixed {
	return &Fixed{
		client: client,
		length: length,
	}
}

func (f *Fixed) Read(p []byte) (int, error) {
	if f.closed {
		return 0, status.ErrStreamClosed
	}

	return f.read(p)
}

func (f *Fixed) read(p []byte) (int, error) {
	if f.transferred >= f.length {
		return 0, io.EOF
	}

	if len(p) == 0 {
		return 0, nil
	}

	data, err := f.client.Read()
	if len(data) == 0 {
		if err == nil {
			return 0, nil
		}

		if errors.Is(err, io.EOF) {
			return 0, status.ErrTruncatedBody
		}

		return 0, err
	}

	n := copy(p[:min(int64(len(p)), f.length-f.transferred)], data)
	f.client.Unread(data[n:])
	f.transferred += int64(n)

	return n, nil
}

func (f *Fixed) Close() error {
	if f.closed {
		return status.ErrStreamClosed
	}

	f.closed = true
	return nil
}

func (f *Fixed) Length() int64 {
	return f.length
}

func (f *Fixed) Transferred() int64 {
	return f.transferred
}

func (*Fixed) Trailers() *headers.Headers {
	return nil
}
