package proto

import (
	"strconv"

	"github.com/indigo-web/utils/uf"
)

// Protocol is an HTTP version encoded as major<<8 | minor. Thanks to the encoding, comparing
// two protocols as integers orders them the same way as comparing (major, minor) pairs.
type Protocol uint16

const (
	Unknown Protocol = 0
	HTTP10  Protocol = 1<<8 | 0
	HTTP11  Protocol = 1<<8 | 1
	HTTP2   Protocol = 2<<8 | 0
)

// New builds a protocol of an arbitrary version. Versions other than the well-known ones are
// still valid values.
func New(major, minor uint8) Protocol {
	return Protocol(major)<<8 | Protocol(minor)
}

func (p Protocol) Major() uint8 {
	return uint8(p >> 8)
}

func (p Protocol) Minor() uint8 {
	return uint8(p)
}

// Known reports whether the protocol is one of HTTP/1.0, HTTP/1.1 or HTTP/2.0.
func (p Protocol) Known() bool {
	switch p {
	case HTTP10, HTTP11, HTTP2:
		return true
	}

	return false
}

// String returns the canonical wire representation, e.g. HTTP/1.1
func (p Protocol) String() string {
	switch p {
	case Unknown:
		return ""
	case HTTP10:
		return "HTTP/1.0"
	case HTTP11:
		return "HTTP/1.1"
	case HTTP2:
		return "HTTP/2.0"
	}

	return "HTTP/" + strconv.Itoa(int(p.Major())) + "." + strconv.Itoa(int(p.Minor()))
}

// AppendTo appends the wire representation without allocating for the well-known versions.
func (p Protocol) AppendTo(buff []byte) []byte {
	if p.Known() {
		return append(buff, p.String()...)
	}

	buff = append(buff, "HTTP/"...)
	buff = strconv.AppendUint(buff, uint64(p.Major()), 10)
	buff = append(buff, '.')
	return strconv.AppendUint(buff, uint64(p.Minor()), 10)
}

const (
	protoTokenLength   = len("HTTP/x.x")
	majorVersionOffset = len("HTTP/x") - 1
	minorVersionOffset = len("HTTP/x.x") - 1
	httpScheme         = "HTTP/"
)

// FromBytes parses a version token of exactly HTTP/<digit>.<digit> form. Unknown is returned
// for anything malformed.
func FromBytes(raw []byte) Protocol {
	if len(raw) != protoTokenLength || uf.B2S(raw[:majorVersionOffset]) != httpScheme {
		return Unknown
	}

	if raw[majorVersionOffset+1] != '.' {
		return Unknown
	}

	return Parse(raw[majorVersionOffset], raw[minorVersionOffset])
}

// Parse builds a protocol from ASCII digits of major and minor versions.
func Parse(major, minor byte) Protocol {
	if !isDigit(major) || !isDigit(minor) {
		return Unknown
	}

	// HTTP/0.0 is unrepresentable, as it collides with Unknown. It's not a real version anyway
	return New(major-'0', minor-'0')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
