package uri

import (
	"strings"

	"github.com/indigo-web/rawhttp/http/query"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/internal/uridecode"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

// URI is a parsed request-target.
type URI struct {
	// Path is percent-decoded. For authority-form targets (CONNECT) it's the authority verbatim.
	Path string
	// Query is the raw query string, without the question mark.
	Query string
	// Fragment is everything after the first '#', as it was sent.
	Fragment string
}

// Parse splits the request-target into its parts, appending query parameters into params.
// Targets in absolute form have their scheme and authority stripped. An empty target
// stands for the root.
func Parse(target string, params *query.Params) (uri URI, err error) {
	switch {
	case len(target) == 0:
		return URI{Path: "/"}, nil
	case target == "*":
		return URI{Path: target}, nil
	case target[0] == '/':
	case hasScheme(target):
		target = stripAuthority(target)
	default:
		return URI{Path: target}, nil
	}

	target, uri.Fragment, _ = strings.Cut(target, "#")
	target, uri.Query, _ = strings.Cut(target, "?")

	if uri.Path, err = decodePath(target); err != nil {
		return URI{}, err
	}

	if err = query.Parse(uri.Query, params); err != nil {
		return URI{}, err
	}

	return uri, nil
}

func hasScheme(target string) bool {
	return hasPrefixFold(target, "http://") || hasPrefixFold(target, "https://")
}

func hasPrefixFold(str, prefix string) bool {
	return len(str) >= len(prefix) && strcomp.EqualFold(str[:len(prefix)], prefix)
}

func stripAuthority(target string) string {
	_, rest, _ := strings.Cut(target, "://")
	slash := strings.IndexAny(rest, "/?#")
	if slash == -1 {
		return "/"
	}

	if rest[slash] != '/' {
		return "/" + rest[slash:]
	}

	return rest[slash:]
}

func decodePath(path string) (string, error) {
	if strings.IndexByte(path, '%') == -1 {
		return path, nil
	}

	decoded, err := uridecode.Decode(uf.S2B(path), make([]byte, 0, len(path)), false)
	if err != nil {
		return "", status.ErrURIDecoding
	}

	return string(decoded), nil
}
