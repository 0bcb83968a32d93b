package http1

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strconv"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/http/content"
	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/hexconv"
	"github.com/indigo-web/rawhttp/transport"
	"github.com/indigo-web/utils/strcomp"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

const crlf = "\r\n"

// continueResponse is written as is, regardless of the protocol of the request.
const continueResponse = "HTTP/1.1 100 Continue\r\n\r\n"

// Serializer turns outgoing messages into bytes. Writes are accumulated in a pooled scratch
// buffer, which is flushed once it's three quarters full and when a message is complete.
type Serializer struct {
	cfg       *config.Config
	client    transport.Client
	logger    *zap.Logger
	buff      []byte
	threshold int
	readBuff  *bytebufferpool.ByteBuffer
	trailers  *headers.Headers
}

func NewSerializer(cfg *config.Config, client transport.Client, logger *zap.Logger) *Serializer {
	return &Serializer{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		threshold: cfg.NET.WriteBufferSize * 3 / 4,
		trailers:  headers.New(),
	}
}

// messageHead carries everything about a message, what isn't stored in http.Outgoing.
type messageHead struct {
	protocol proto.Protocol
	// bodyless messages carry neither framing headers nor a body, e.g. 204 or 1xx.
	bodyless bool
	// headOnly messages carry the framing of the body, but not the body itself.
	headOnly bool
	// trailers tells whether the peer accepts trailer fields.
	trailers bool
	// implicitEmpty messages may omit the framing of an empty body, as requests may.
	implicitEmpty bool
}

// WriteContinue writes the interim response telling the client to go on sending the body.
func (s *Serializer) WriteContinue() error {
	_, err := s.client.Write([]byte(continueResponse))
	return err
}

// WriteResponse serializes the response. Protocol is the one the response is sent with,
// the requestMethod is used to decide whether the body must be omitted. Trailers are sent
// only if trailers is true.
func (s *Serializer) WriteResponse(
	protocol proto.Protocol, requestMethod method.Method, trailers bool, resp *http.ResponseFields,
) error {
	if protocol == proto.Unknown {
		protocol = s.cfg.HTTP.DefaultProtocol
	}

	head := messageHead{
		protocol: protocol,
		bodyless: resp.Code.Informational() ||
			resp.Code == status.NoContent || resp.Code == status.NotModified,
		headOnly: requestMethod == method.HEAD,
		trailers: trailers && protocol >= proto.HTTP11,
	}

	return s.write(head, &resp.Outgoing, func() {
		s.appendProtocol(protocol)
		s.buff = append(s.buff, ' ')
		s.appendStatus(resp.Code, resp.Status)
	})
}

// WriteRequest serializes the request.
func (s *Serializer) WriteRequest(req *http.RequestFields) error {
	protocol := req.Protocol
	if protocol == proto.Unknown {
		protocol = proto.HTTP11
	}

	head := messageHead{
		protocol:      protocol,
		trailers:      protocol >= proto.HTTP11,
		implicitEmpty: true,
	}

	return s.write(head, &req.Outgoing, func() {
		s.buff = append(s.buff, req.Method.String()...)
		s.buff = append(s.buff, ' ')
		s.buff = append(s.buff, req.Target...)
		s.buff = append(s.buff, ' ')
		s.appendProtocol(protocol)
		s.crlf()
	})
}

func (s *Serializer) write(head messageHead, msg *http.Outgoing, startLine func()) (err error) {
	// nothing may be written if the message is malformed, as there's no way to take the
	// written bytes back
	if err = validateTrailers(msg); err != nil {
		_ = msg.Body.Close()
		return err
	}

	buff := bytebufferpool.Get()
	s.buff = slices.Grow(buff.B[:0], s.cfg.NET.WriteBufferSize)
	defer func() {
		buff.B = s.buff[:0]
		bytebufferpool.Put(buff)
		s.buff = nil
	}()

	defer func() {
		if cerr := msg.Body.Close(); cerr != nil && err == nil && !errors.Is(cerr, status.ErrStreamClosed) {
			err = cerr
		}
	}()

	startLine()

	if head.bodyless {
		if msg.Body.Length() != 0 || msg.Headers.Has(headers.ContentLength) || msg.Headers.Has(headers.TransferEncoding) {
			s.logger.Warn("stripping the body and framing off a message, which must not carry them")
		}

		s.appendHeaders(msg.Headers)
		s.crlf()

		return s.flush()
	}

	stream := msg.Body
	length := stream.Length()

	if length < 0 && head.protocol < proto.HTTP11 {
		// HTTP/1.0 knows no chunked encoding, so the body is buffered to learn its length
		var data *bytebufferpool.ByteBuffer
		if data, err = s.buffer(stream); err != nil {
			return err
		}
		defer bytebufferpool.Put(data)

		stream = content.Wrap(bytes.NewReader(data.B), int64(data.Len()))
		length = int64(data.Len())
	}

	s.appendHeaders(msg.Headers)

	if length == 0 && head.implicitEmpty {
		s.crlf()
		return s.flush()
	}

	if length >= 0 {
		s.appendContentLength(length)
		s.crlf()

		if head.headOnly {
			return s.flush()
		}

		if err = s.copyIdentity(stream, length); err != nil {
			return err
		}

		return s.flush()
	}

	s.appendKnownHeader("Transfer-Encoding: ", "chunked")
	sendTrailers := head.trailers && len(msg.TrailerNames) > 0
	if sendTrailers {
		s.appendTrailerDeclaration(msg.TrailerNames)
	}

	s.crlf()

	if head.headOnly {
		return s.flush()
	}

	if _, err = (chunkedWriter{s}).ReadFrom(stream); err != nil {
		return err
	}

	s.buff = append(s.buff, "0\r\n"...)
	if sendTrailers {
		if err = s.appendTrailers(msg); err != nil {
			return err
		}
	}

	s.crlf()

	return s.flush()
}

func validateTrailers(msg *http.Outgoing) error {
	if msg.Headers.Has(headers.Trailer) {
		return status.ErrManualTrailerHeader
	}

	if len(msg.TrailerNames) > 0 && msg.Trailers == nil {
		return status.ErrTrailersWithoutFunc
	}

	for _, name := range msg.TrailerNames {
		if !headers.IsValidTrailerName(name) {
			return status.ErrReservedTrailer
		}
	}

	return nil
}

func (s *Serializer) appendTrailers(msg *http.Outgoing) error {
	s.trailers.Clear()
	msg.Trailers(s.trailers)

	for key, value := range s.trailers.Pairs() {
		if !declared(msg.TrailerNames, key) {
			return status.ErrUndeclaredTrailer
		}

		s.appendHeader(key, value)
	}

	return nil
}

func declared(names []string, key string) bool {
	for _, name := range names {
		if strcomp.EqualFold(name, key) {
			return true
		}
	}

	return false
}

// buffer reads the stream till the end into a pooled buffer.
func (s *Serializer) buffer(stream content.Stream) (*bytebufferpool.ByteBuffer, error) {
	data := bytebufferpool.Get()
	if _, err := data.ReadFrom(stream); err != nil {
		bytebufferpool.Put(data)
		return nil, err
	}

	return data, nil
}

func (s *Serializer) copyIdentity(stream content.Stream, length int64) error {
	n, err := io.CopyN(identityWriter{s}, stream, length)
	if err == io.EOF || (err == nil && n < length) {
		return io.ErrUnexpectedEOF
	}

	return err
}

func (s *Serializer) appendStatus(code status.Code, reason status.Status) {
	if len(reason) == 0 {
		reason = status.Text(code)
	}

	s.buff = strconv.AppendUint(s.buff, uint64(code), 10)
	s.buff = append(s.buff, ' ')
	s.buff = append(s.buff, reason...)
	s.crlf()
}

// appendHeaders writes every header except framing ones, which are computed out of the body.
// Values of the same key are glued into a single line, except Set-Cookie, which can't be.
func (s *Serializer) appendHeaders(h *headers.Headers) {
	for key := range h.Keys() {
		if strcomp.EqualFold(key, headers.ContentLength) || strcomp.EqualFold(key, headers.TransferEncoding) {
			continue
		}

		if strcomp.EqualFold(key, headers.SetCookie) {
			for value := range h.Values(key) {
				s.appendHeader(key, value)
			}

			continue
		}

		s.appendHeader(key, h.Joined(key))
	}
}

func (s *Serializer) appendTrailerDeclaration(names []string) {
	s.buff = append(s.buff, "Trailer: "...)
	for i, name := range names {
		if i > 0 {
			s.buff = append(s.buff, ", "...)
		}

		s.buff = append(s.buff, name...)
	}

	s.crlf()
}

func (s *Serializer) appendHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, ':', ' ')
	s.buff = append(s.buff, value...)
	s.crlf()
}

// appendKnownHeader differs from appendHeader only by the fact that the key is known to already
// have a colon and a space included.
func (s *Serializer) appendKnownHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendInt(s.buff, value, 10)
	s.crlf()
}

func (s *Serializer) appendProtocol(protocol proto.Protocol) {
	s.buff = protocol.AppendTo(s.buff)
}

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}

// maybeFlush flushes the buffer once it gets past the threshold.
func (s *Serializer) maybeFlush() error {
	if len(s.buff) < s.threshold {
		return nil
	}

	return s.flush()
}

func (s *Serializer) flush() (err error) {
	if len(s.buff) > 0 {
		_, err = s.client.Write(s.buff)
		s.buff = s.buff[:0]
	}

	return err
}

// readBuffer returns a scratch slice the stream is read into.
func (s *Serializer) readBuffer() []byte {
	if s.readBuff == nil {
		s.readBuff = bytebufferpool.Get()
	}

	size := max(s.cfg.NET.MaxChunkSize, 1)
	s.readBuff.B = slices.Grow(s.readBuff.B[:0], size)

	return s.readBuff.B[:size]
}

// Release gives the pooled buffers back. The serializer remains usable.
func (s *Serializer) Release() {
	if s.readBuff != nil {
		bytebufferpool.Put(s.readBuff)
		s.readBuff = nil
	}
}

type chunkedWriter struct {
	s *Serializer
}

// ReadFrom reads the stream till io.EOF, writing every piece as a separate chunk.
func (c chunkedWriter) ReadFrom(r io.Reader) (total int64, err error) {
	buff := c.s.readBuffer()

	for {
		n, err := r.Read(buff)
		if n > 0 {
			total += int64(n)

			if _, err := c.Write(buff[:n]); err != nil {
				return total, err
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return total, nil
		default:
			return total, err
		}
	}
}

// Write writes b as chunks of at most MaxChunkSize bytes each.
func (c chunkedWriter) Write(b []byte) (n int, err error) {
	maxChunk := max(c.s.cfg.NET.MaxChunkSize, 1)

	for len(b) > 0 {
		chunk := b[:min(len(b), maxChunk)]
		c.s.buff = hexconv.Append(c.s.buff, uint64(len(chunk)))
		c.s.crlf()
		c.s.buff = append(c.s.buff, chunk...)
		c.s.crlf()

		if err = c.s.maybeFlush(); err != nil {
			return n, err
		}

		n += len(chunk)
		b = b[len(chunk):]
	}

	return n, nil
}

type identityWriter struct {
	s *Serializer
}

func (i identityWriter) ReadFrom(r io.Reader) (total int64, err error) {
	buff := i.s.readBuffer()

	for {
		n, err := r.Read(buff)
		if n > 0 {
			total += int64(n)

			if _, err := i.Write(buff[:n]); err != nil {
				return total, err
			}
		}

		switch err {
		case nil:
		case io.EOF:
			return total, nil
		default:
			return total, err
		}
	}
}

func (i identityWriter) Write(b []byte) (n int, err error) {
	if len(i.s.buff)+len(b) <= i.s.threshold {
		i.s.buff = append(i.s.buff, b...)
		return len(b), nil
	}

	if err = i.s.flush(); err != nil {
		return 0, err
	}

	return i.s.client.Write(b)
}
