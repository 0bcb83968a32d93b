package uridecode

import (
	"bytes"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/hexconv"
)

// Decode normalizes the URI by translating escaped characters into their
// true form. If nothing was escaped, src is returned as is, otherwise the
// result is appended to buff. When plus is set, '+' is decoded into a space,
// as it's done in query strings.
func Decode(src, buff []byte, plus bool) ([]byte, error) {
	if bytes.IndexByte(src, '%') == -1 && (!plus || bytes.IndexByte(src, '+') == -1) {
		return src, nil
	}

	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '%':
			if i+2 >= len(src) {
				return nil, status.ErrURIDecoding
			}

			hi, ok1 := hexconv.Parse(src[i+1])
			lo, ok2 := hexconv.Parse(src[i+2])
			if !ok1 || !ok2 {
				return nil, status.ErrURIDecoding
			}

			buff = append(buff, hi<<4|lo)
			i += 2
		case '+':
			if plus {
				c = ' '
			}

			buff = append(buff, c)
		default:
			buff = append(buff, c)
		}
	}

	return buff, nil
}
