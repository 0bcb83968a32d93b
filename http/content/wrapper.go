package content

import (
	"io"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/status"
)

var _ Stream = new(Wrapper)

// Wrapper adapts an arbitrary reader. Unlike other streams, it owns the reader: if the reader
// is an io.Closer, closing the stream closes it too.
type Wrapper struct {
	r           io.Reader
	length      int64
	transferred int64
	closed      bool
}

// Wrap returns a stream over the reader. The length is -1 if it's unknown.
func Wrap(r io.Reader, length int64) *Wrapper {
	return &Wrapper{
		r:      r,
		length: length,
	}
}

func (w *Wrapper) Read(p []byte) (int, error) {
	if w.closed {
		return 0, status.ErrStreamClosed
	}

	return w.read(p)
}

func (w *Wrapper) read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	w.transferred += int64(n)
	return n, err
}

func (w *Wrapper) Close() error {
	if w.closed {
		return status.ErrStreamClosed
	}

	w.closed = true
	if closer, ok := w.r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Reader returns the wrapped reader.
func (w *Wrapper) Reader() io.Reader {
	return w.r
}

func (w *Wrapper) Length() int64 {
	return w.length
}

func (w *Wrapper) Transferred() int64 {
	return w.transferred
}

func (*Wrapper) Trailers() *headers.Headers {
	return nil
}
