package query

import (
	"strings"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/uridecode"
	"github.com/indigo-web/rawhttp/kv"
	"github.com/indigo-web/utils/uf"
)

// Params are the URI query parameters. Unlike headers, they may be case-sensitive.
type Params = kv.Storage

func New(caseSensitive bool, prealloc int) *Params {
	if caseSensitive {
		return kv.NewCaseSensitive()
	}

	return kv.NewPrealloc(prealloc)
}

// Parse appends pairs of the query string (without the leading '?') into the params. Both
// keys and values are percent-decoded, '+' standing for a space. Repeated ampersands are
// skipped and a key without '=' gets an empty value. An empty key or a dangling ampersand
// at the end fail the whole query with status.ErrBadParams.
func Parse(raw string, into *Params) error {
	var scratch []byte

	for len(raw) > 0 {
		raw = strings.TrimLeft(raw, "&")
		if len(raw) == 0 {
			break
		}

		pair, rest, more := strings.Cut(raw, "&")
		if more && len(strings.TrimLeft(rest, "&")) == 0 {
			return status.ErrBadParams
		}

		key, value, _ := strings.Cut(pair, "=")
		if len(key) == 0 {
			return status.ErrBadParams
		}

		var err error
		if key, scratch, err = decode(key, scratch); err != nil {
			return err
		}

		if value, scratch, err = decode(value, scratch); err != nil {
			return err
		}

		into.Add(key, value)
		raw = rest
	}

	return nil
}

// decode returns the string as is if there's nothing to decode, otherwise a fresh copy.
func decode(str string, scratch []byte) (string, []byte, error) {
	if !strings.ContainsAny(str, "%+") {
		return str, scratch, nil
	}

	decoded, err := uridecode.Decode(uf.S2B(str), scratch[:0], true)
	if err != nil {
		return "", scratch, err
	}

	return string(decoded), decoded, nil
}
