package content

import (
	"bytes"
	"errors"
	"io"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/delim"
	"github.com/indigo-web/rawhttp/internal/hexconv"
	"github.com/indigo-web/rawhttp/internal/wire"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/indigo-web/utils/uf"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"
)

var _ Stream = new(Chunked)

type chunkedState uint8

const (
	chunkedAwaitingSize chunkedState = iota
	chunkedBody
	chunkedBodyCRLF
	chunkedTrailers
	chunkedDone
	chunkedFailed
)

// maxChunkSizeDigits keeps the chunk length within int64 with a margin for the running total.
const maxChunkSizeDigits = 15

type ChunkedConfig struct {
	// MaxSize limits the total length of the decoded body.
	MaxSize int64
	// MaxLineLength limits the chunk-size line, extensions included.
	MaxLineLength int
	// MaxTrailersSize limits the trailer section.
	MaxTrailersSize int
	// DeclaredLength is the Content-Length sent along with chunked encoding, or -1. A mismatch
	// is only reported, as the chunked framing takes precedence.
	DeclaredLength int64
	// ExpectTrailers is set if the message declared trailers via the Trailer header.
	ExpectTrailers bool
}

// Chunked decodes a body in chunked transfer encoding. Chunk extensions are validated and
// discarded. Trailers are accepted regardless of whether they were declared, but are exposed
// only if they were.
type Chunked struct {
	client      transport.Client
	cfg         ChunkedConfig
	logger      *zap.Logger
	state       chunkedState
	err         error
	line        []byte
	remaining   int64
	crlfSeen    int
	transferred int64
	closed      bool
	trailers    *headers.Headers
}

// NewChunked returns a decoder reading off the client. The client is borrowed.
func NewChunked(client transport.Client, cfg ChunkedConfig, logger *zap.Logger) *Chunked {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Chunked{
		client: client,
		cfg:    cfg,
		logger: logger.Named("content.chunked"),
	}
}

func (c *Chunked) Read(p []byte) (int, error) {
	if c.closed {
		return 0, status.ErrStreamClosed
	}

	return c.read(p)
}

func (c *Chunked) read(p []byte) (n int, err error) {
	for {
		switch c.state {
		case chunkedAwaitingSize:
			err = c.readSize()
		case chunkedBody:
			if len(p) == 0 {
				return 0, nil
			}

			n, err = c.readBody(p)
			if err == nil && n > 0 {
				return n, nil
			}
		case chunkedBodyCRLF:
			err = c.readCRLF()
		case chunkedTrailers:
			err = c.readTrailers()
		case chunkedDone:
			return 0, io.EOF
		case chunkedFailed:
			return 0, c.err
		}

		if err != nil {
			return 0, c.fail(err)
		}
	}
}

func (c *Chunked) fail(err error) error {
	if errors.Is(err, io.EOF) {
		err = status.ErrTruncatedBody
	}

	c.state, c.err = chunkedFailed, err
	return err
}

// next returns the next non-empty portion of data, or an error.
func (c *Chunked) next() ([]byte, error) {
	for {
		data, err := c.client.Read()
		if len(data) > 0 {
			return data, nil
		}

		if err != nil {
			return nil, err
		}
	}
}

func (c *Chunked) readSize() error {
	m := delim.Lines.Acquire()
	defer delim.Lines.Release(m)

	c.line = c.line[:0]

	for {
		data, err := c.next()
		if err != nil {
			return err
		}

		end := m.Find(data)
		if end == -1 {
			if len(c.line)+len(data) > c.cfg.MaxLineLength {
				return status.ErrBadChunk
			}

			c.line = append(c.line, data...)
			continue
		}

		if len(c.line)+end+1 > c.cfg.MaxLineLength {
			return status.ErrBadChunk
		}

		c.line = append(c.line, data[:end+1]...)
		c.client.Unread(data[end+1:])

		return c.parseSize(c.line[:len(c.line)-len(delim.CRLF)])
	}
}

func (c *Chunked) parseSize(line []byte) error {
	size, ext, hasExt := bytes.Cut(line, []byte{';'})
	if hasExt && !httpguts.ValidHeaderFieldValue(uf.B2S(ext)) {
		return status.ErrBadChunk
	}

	// whitespaces before extensions are tolerated, as RFC 9112, 7.1.1 allows BWS there
	size = bytes.TrimRight(size, " \t")
	if len(size) == 0 || len(size) > maxChunkSizeDigits {
		return status.ErrBadChunk
	}

	var length int64

	for _, char := range size {
		value, ok := hexconv.Parse(char)
		if !ok {
			return status.ErrBadChunk
		}

		length = length<<4 | int64(value)
	}

	if length == 0 {
		c.state = chunkedTrailers
		return nil
	}

	if c.transferred+length > c.cfg.MaxSize {
		return status.ErrBodyTooLarge
	}

	c.remaining = length
	c.state = chunkedBody

	return nil
}

func (c *Chunked) readBody(p []byte) (int, error) {
	data, err := c.next()
	if err != nil {
		return 0, err
	}

	n := copy(p[:min(int64(len(p)), c.remaining)], data)
	c.client.Unread(data[n:])
	c.remaining -= int64(n)
	c.transferred += int64(n)

	if c.remaining == 0 {
		c.state = chunkedBodyCRLF
	}

	return n, nil
}

func (c *Chunked) readCRLF() error {
	for c.crlfSeen < len(delim.CRLF) {
		data, err := c.next()
		if err != nil {
			return err
		}

		i := 0
		for ; i < len(data) && c.crlfSeen < len(delim.CRLF); i++ {
			if data[i] != delim.CRLF[c.crlfSeen] {
				return status.ErrBadChunk
			}

			c.crlfSeen++
		}

		c.client.Unread(data[i:])
	}

	c.crlfSeen = 0
	c.state = chunkedAwaitingSize

	return nil
}

func (c *Chunked) readTrailers() error {
	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	if err := wire.ReadTrailerBlock(c.client, c.cfg.MaxTrailersSize, buff); err != nil {
		return err
	}

	trailers := headers.New()
	if _, err := wire.ParseHeaders(buff.B, 0, trailers, nil, 0); err != nil {
		return err
	}

	if c.cfg.ExpectTrailers {
		c.trailers = trailers
	} else if !trailers.Empty() {
		c.logger.Debug("discarding undeclared trailers", zap.Int("count", trailers.Len()))
	}

	if c.cfg.DeclaredLength >= 0 && c.cfg.DeclaredLength != c.transferred {
		c.logger.Warn(
			"Content-Length doesn't match the length of the chunked body",
			zap.Int64("declared", c.cfg.DeclaredLength),
			zap.Int64("transferred", c.transferred),
		)
	}

	c.state = chunkedDone

	return nil
}

func (c *Chunked) Close() error {
	if c.closed {
		return status.ErrStreamClosed
	}

	c.closed = true
	return nil
}

func (*Chunked) Length() int64 {
	return -1
}

func (c *Chunked) Transferred() int64 {
	return c.transferred
}

func (c *Chunked) Trailers() *headers.Headers {
	return c.trailers
}
