package wire

import (
	"bytes"

	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/proto"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/delim"
	"github.com/indigo-web/rawhttp/internal/intern"
	"github.com/indigo-web/utils/uf"
)

type RequestLine struct {
	Method method.Method
	// Target is the request-target exactly as it was sent.
	Target   string
	Protocol proto.Protocol
}

// ParseRequestLine parses the first line of the block in METHOD TARGET HTTP/x.y form. Empty
// lines preceding it are skipped. The returned offset points to the first byte after the line.
// Targets are copied out of the block, optionally through the cache.
func ParseRequestLine(block []byte, targets *intern.Cache) (line RequestLine, next int, err error) {
	offset := 0
	for len(block)-offset >= 2 && block[offset] == '\r' && block[offset+1] == '\n' {
		offset += 2
	}

	raw, end, ok := cutLine(block[offset:])
	if !ok {
		return line, 0, status.ErrBadRequestLine
	}

	sp := bytes.IndexByte(raw, ' ')
	if sp <= 0 {
		return line, 0, status.ErrBadRequestLine
	}

	verb, rest := raw[:sp], raw[sp+1:]

	sp = bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return line, 0, status.ErrBadRequestLine
	}

	target, version := rest[:sp], rest[sp+1:]

	line.Protocol = proto.FromBytes(version)
	if line.Protocol == proto.Unknown {
		return line, 0, status.ErrBadRequestLine
	}

	line.Method = method.Parse(uf.B2S(verb))
	if line.Method == method.Unknown {
		return line, 0, status.ErrMethodNotImplemented
	}

	line.Target = targets.String(target)

	return line, offset + end, nil
}

type StatusLine struct {
	Protocol proto.Protocol
	Code     status.Code
	Reason   string
}

// ParseResponseLine parses the first line of the block in HTTP/x.y CODE REASON form. The
// reason may be empty, and so might the space preceding it.
func ParseResponseLine(block []byte, reasons *intern.Cache) (line StatusLine, next int, err error) {
	const (
		versionLength = len("HTTP/x.x")
		codeLength    = len("200")
	)

	raw, end, ok := cutLine(block)
	if !ok || len(raw) < versionLength+1+codeLength || raw[versionLength] != ' ' {
		return line, 0, status.ErrBadStatusLine
	}

	line.Protocol = proto.FromBytes(raw[:versionLength])
	if line.Protocol == proto.Unknown {
		return line, 0, status.ErrBadStatusLine
	}

	rest := raw[versionLength+1:]
	code, reason := rest[:codeLength], rest[codeLength:]

	for _, c := range code {
		if c < '0' || c > '9' {
			return line, 0, status.ErrBadStatusLine
		}

		line.Code = line.Code*10 + status.Code(c-'0')
	}

	if !line.Code.Valid() {
		return line, 0, status.ErrBadStatusLine
	}

	if len(reason) > 0 {
		if reason[0] != ' ' {
			return line, 0, status.ErrBadStatusLine
		}

		line.Reason = reasons.String(reason[1:])
	}

	return line, end, nil
}

// cutLine returns the line without its CRLF, and the offset right after the CRLF.
func cutLine(data []byte) (line []byte, next int, ok bool) {
	m := delim.Lines.Acquire()
	defer delim.Lines.Release(m)

	end := m.Find(data)
	if end == -1 {
		return nil, 0, false
	}

	return data[:end-1], end + 1, true
}
