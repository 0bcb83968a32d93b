package http1

import (
	"io"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/http/uri"
	"github.com/indigo-web/rawhttp/internal/intern"
	"github.com/indigo-web/rawhttp/internal/wire"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// maxContentLengthDigits keeps the value within int64.
const maxContentLengthDigits = 18

// Parser reads message heads off the client and binds their bodies to the right streams.
type Parser struct {
	cfg     *config.Config
	client  transport.Client
	logger  *zap.Logger
	names   *intern.Cache
	targets *intern.Cache
}

// NewParser returns a parser. Caches may be shared between connections, the nil ones
// disable interning.
func NewParser(
	cfg *config.Config, client transport.Client, names, targets *intern.Cache, logger *zap.Logger,
) *Parser {
	return &Parser{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		names:   names,
		targets: targets,
	}
}

// ReadRequest reads the next request head. Once it returns, the body can be read via
// request's Body.
func (p *Parser) ReadRequest(req *http.Request) error {
	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	if err := wire.ReadHeaderBlock(p.client, p.cfg.Headers.MaxBlockSize, buff); err != nil {
		return err
	}

	line, next, err := wire.ParseRequestLine(buff.B, p.targets)
	if line.Protocol.Major() == 1 {
		// written as early as possible, so that even an erroneous request is answered
		// with its own protocol
		req.Protocol = line.Protocol
	}

	if err != nil {
		return err
	}

	if line.Protocol.Major() != 1 {
		return status.ErrUnsupportedProtocol
	}

	req.Method = line.Method
	req.Target = line.Target

	if _, err = wire.ParseHeaders(buff.B, next, req.Headers, p.names, p.cfg.Headers.MaxNumber); err != nil {
		return err
	}

	target, err := uri.Parse(req.Target, req.Params)
	if err != nil {
		return err
	}

	req.Path, req.Fragment = target.Path, target.Fragment

	f, err := parseFraming(req.Headers, req.Protocol)
	if err != nil {
		return err
	}

	req.ContentLength, req.Chunked = f.contentLength, f.chunked

	switch {
	case f.chunked:
		req.Body.Reset(content.NewChunked(p.client, p.chunkedConfig(&req.Incoming), p.logger), req.Headers)
	case f.contentLength > 0:
		if f.contentLength > p.cfg.Body.MaxSize {
			return status.ErrBodyTooLarge
		}

		req.Body.Reset(content.NewFixed(p.client, f.contentLength), req.Headers)
	default:
		req.Body.Reset(content.Empty, req.Headers)
	}

	return nil
}

// ReadResponse reads the next response head. The requestMethod is the method of the request
// the response is answering, as responses to HEAD carry framing but no body.
func (p *Parser) ReadResponse(resp *http.IncomingResponse, requestMethod method.Method) error {
	buff := bytebufferpool.Get()
	defer bytebufferpool.Put(buff)

	if err := wire.ReadHeaderBlock(p.client, p.cfg.Headers.MaxBlockSize, buff); err != nil {
		if err == status.ErrPeerClosed || err == status.ErrIncompleteHeaders {
			return io.ErrUnexpectedEOF
		}

		return err
	}

	line, next, err := wire.ParseResponseLine(buff.B, p.names)
	if err != nil {
		return err
	}

	if line.Protocol.Major() != 1 {
		return status.ErrBadStatusLine
	}

	resp.Protocol, resp.Code, resp.Reason = line.Protocol, line.Code, status.Status(line.Reason)

	if _, err = wire.ParseHeaders(buff.B, next, resp.Headers, p.names, p.cfg.Headers.MaxNumber); err != nil {
		return err
	}

	resp.KeepAlive = keepAlive(resp.Protocol, resp.Headers)

	if resp.Code.Informational() || resp.Code == status.NoContent || resp.Code == status.NotModified {
		resp.Body.Reset(content.Empty, resp.Headers)
		return nil
	}

	f, err := parseFraming(resp.Headers, resp.Protocol)
	if err != nil {
		return err
	}

	resp.ContentLength, resp.Chunked = f.contentLength, f.chunked

	switch {
	case requestMethod == method.HEAD:
		resp.Body.Reset(content.Empty, resp.Headers)
	case f.chunked:
		resp.Body.Reset(content.NewChunked(p.client, p.chunkedConfig(&resp.Incoming), p.logger), resp.Headers)
	case f.delimited:
		resp.Body.Reset(content.NewFixed(p.client, max(f.contentLength, 0)), resp.Headers)
	default:
		// the body lasts until the connection is closed, so the connection is not reusable
		resp.KeepAlive = false
		resp.Body.Reset(content.Wrap(clientReader{p.client}, -1), resp.Headers)
	}

	return nil
}

func (p *Parser) chunkedConfig(msg *http.Incoming) content.ChunkedConfig {
	return content.ChunkedConfig{
		MaxSize:         p.cfg.Body.MaxSize,
		MaxLineLength:   p.cfg.Body.MaxChunkLine,
		MaxTrailersSize: p.cfg.Headers.MaxBlockSize,
		DeclaredLength:  msg.ContentLength,
		ExpectTrailers:  msg.Headers.Has(headers.Trailer),
	}
}

type framing struct {
	contentLength int64
	chunked       bool
	// delimited is set if the message states its body length by any means.
	delimited bool
}

// parseFraming interprets Content-Length and Transfer-Encoding. Chunked is the only transfer
// coding supported and must be the only one stated. Multiple Content-Length values are
// allowed as long as they're all equal.
func parseFraming(h *headers.Headers, protocol proto.Protocol) (f framing, err error) {
	f.contentLength = -1

	for value := range h.ValueList(headers.ContentLength) {
		length, ok := parseContentLength(value)
		if !ok || (f.contentLength != -1 && f.contentLength != length) {
			return f, status.ErrBadContentLength
		}

		f.contentLength = length
	}

	if f.contentLength == -1 && h.Has(headers.ContentLength) {
		// the header was present, but held nothing
		return f, status.ErrBadContentLength
	}

	f.delimited = f.contentLength != -1

	for coding := range h.ValueList(headers.TransferEncoding) {
		if !strcomp.EqualFold(coding, "chunked") || f.chunked {
			return f, status.ErrUnsupportedEncoding
		}

		f.chunked = true
	}

	if f.chunked {
		if protocol < proto.HTTP11 {
			return f, status.ErrChunkedNotAllowed
		}

		f.delimited = true
	}

	return f, nil
}

func parseContentLength(value string) (length int64, ok bool) {
	if len(value) == 0 || len(value) > maxContentLengthDigits {
		return 0, false
	}

	for i := 0; i < len(value); i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return 0, false
		}

		length = length*10 + int64(c-'0')
	}

	return length, true
}

// clientReader reads the client till the connection is closed.
type clientReader struct {
	client transport.Client
}

func (c clientReader) Read(p []byte) (int, error) {
	for {
		data, err := c.client.Read()
		if len(data) > 0 {
			n := copy(p, data)
			c.client.Unread(data[n:])

			return n, nil
		}

		if err != nil {
			return 0, err
		}
	}
}
