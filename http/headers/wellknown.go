package headers

import (
	"github.com/indigo-web/utils/strcomp"
)

const (
	Authorization       = "Authorization"
	CacheControl        = "Cache-Control"
	Connection          = "Connection"
	ContentEncoding     = "Content-Encoding"
	ContentLength       = "Content-Length"
	ContentRange        = "Content-Range"
	ContentType         = "Content-Type"
	Cookie              = "Cookie"
	Expect              = "Expect"
	Host                = "Host"
	HTTP2Settings       = "HTTP2-Settings"
	MaxForwards         = "Max-Forwards"
	ProxyAuthorization  = "Proxy-Authorization"
	SecWebSocketAccept  = "Sec-WebSocket-Accept"
	SecWebSocketKey     = "Sec-WebSocket-Key"
	SecWebSocketVersion = "Sec-WebSocket-Version"
	ServerTiming        = "Server-Timing"
	SetCookie           = "Set-Cookie"
	TE                  = "TE"
	Trailer             = "Trailer"
	TransferEncoding    = "Transfer-Encoding"
	Upgrade             = "Upgrade"
)

// reservedTrailers are the fields which control framing, routing, authentication or the
// content itself, hence must never be sent after the body.
var reservedTrailers = []string{
	TransferEncoding,
	ContentLength,
	ContentType,
	Trailer,
	ContentEncoding,
	ContentRange,
	Host,
	CacheControl,
	MaxForwards,
	TE,
	Authorization,
	SetCookie,
}

// IsValidTrailerName reports whether the field may be declared as a trailer.
func IsValidTrailerName(name string) bool {
	if len(name) == 0 {
		return false
	}

	for _, reserved := range reservedTrailers {
		if strcomp.EqualFold(name, reserved) {
			return false
		}
	}

	return true
}

// IsSensitive reports whether values of the field carry credentials and therefore must
// never be shared across requests, e.g. by caching.
func IsSensitive(name string) bool {
	return strcomp.EqualFold(name, Authorization) ||
		strcomp.EqualFold(name, ProxyAuthorization) ||
		strcomp.EqualFold(name, Cookie) ||
		strcomp.EqualFold(name, SetCookie)
}
