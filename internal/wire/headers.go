package wire

import (
	"bytes"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/intern"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

// ParseHeaders parses header lines starting at the offset until the blank line, appending
// them into the storage. The offset right after the blank line is returned. Names and values
// are copied out of the block, through the cache if it's set, except values of
// credential-bearing fields. maxNumber <= 0 means no limit.
func ParseHeaders(
	block []byte, offset int, into *headers.Headers, cache *intern.Cache, maxNumber int,
) (next int, err error) {
	for count := 0; ; count++ {
		line, end, ok := cutLine(block[offset:])
		if !ok {
			return 0, status.ErrBadHeader
		}

		offset += end

		if len(line) == 0 {
			return offset, nil
		}

		if maxNumber > 0 && count >= maxNumber {
			return 0, status.ErrTooManyHeaders
		}

		key, value, err := parseHeaderLine(line)
		if err != nil {
			return 0, err
		}

		name := cache.String(key)
		if headers.IsSensitive(name) {
			into.Add(name, string(value))
		} else {
			into.Add(name, cache.String(value))
		}
	}
}

func parseHeaderLine(line []byte) (key, value []byte, err error) {
	// obsolete line folding is rejected as RFC 9112, 5.2 permits
	if line[0] == ' ' || line[0] == '\t' {
		return nil, nil, status.ErrBadHeader
	}

	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return nil, nil, status.ErrBadHeader
	}

	key, value = line[:colon], trimOWS(line[colon+1:])
	if !httpguts.ValidHeaderFieldName(uf.B2S(key)) || !httpguts.ValidHeaderFieldValue(uf.B2S(value)) {
		return nil, nil, status.ErrBadHeader
	}

	return key, value, nil
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}

	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}

	return b
}
