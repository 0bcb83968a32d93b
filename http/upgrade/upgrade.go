package upgrade

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/indigo-web/rawhttp/http/headers"
	"github.com/indigo-web/rawhttp/http/method"
	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/utils/strcomp"
	"golang.org/x/net/http2"
)

// Kind is the protocol a connection is being switched to.
type Kind uint8

const (
	None Kind = iota
	WebSocket
	H2C
)

func (k Kind) String() string {
	switch k {
	case WebSocket:
		return "websocket"
	case H2C:
		return "h2c"
	default:
		return ""
	}
}

// Choose picks the first supported protocol of the Upgrade header, as they are listed in
// order of preference. Requests whose Connection header doesn't contain the upgrade token
// aren't upgrades at all.
func Choose(h *headers.Headers) Kind {
	if !h.ContainsToken(headers.Connection, "upgrade") {
		return None
	}

	for token := range h.ValueList(headers.Upgrade) {
		// a version suffix, e.g. websocket/13, is ignored
		name, _, _ := strings.Cut(token, "/")

		switch {
		case strcomp.EqualFold(name, "websocket"):
			return WebSocket
		case strcomp.EqualFold(name, "h2c"):
			return H2C
		}
	}

	return None
}

const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// WebSocketAccept computes the Sec-WebSocket-Accept value for the key.
func WebSocketAccept(key string) string {
	digest := sha1.Sum([]byte(key + websocketGUID))
	return base64.StdEncoding.EncodeToString(digest[:])
}

// CheckWebSocket validates the opening handshake and returns the key. Any deviation results
// in status.ErrBadUpgrade.
func CheckWebSocket(m method.Method, h *headers.Headers) (key string, err error) {
	if m != method.GET {
		return "", status.ErrBadUpgrade
	}

	if h.Value(headers.SecWebSocketVersion) != "13" {
		return "", status.ErrBadUpgrade
	}

	key = strings.TrimSpace(h.Value(headers.SecWebSocketKey))
	if len(key) == 0 {
		return "", status.ErrBadUpgrade
	}

	return key, nil
}

var ErrBadSettings = errors.New("malformed HTTP2-Settings")

// CheckH2C validates the upgrade request to cleartext HTTP/2 and decodes the settings it
// carries.
func CheckH2C(h *headers.Headers) ([]http2.Setting, error) {
	if !h.ContainsToken(headers.Connection, headers.HTTP2Settings) {
		return nil, ErrBadSettings
	}

	var values []string
	for value := range h.Values(headers.HTTP2Settings) {
		values = append(values, value)
	}

	if len(values) != 1 {
		return nil, ErrBadSettings
	}

	return ParseHTTP2Settings(values[0])
}

// ParseHTTP2Settings decodes the base64url-encoded SETTINGS payload. The payload is framed
// and read back by the http2 framer, so it's validated exactly as a real SETTINGS frame.
func ParseHTTP2Settings(value string) ([]http2.Setting, error) {
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, ErrBadSettings
	}

	frame := make([]byte, 0, frameHeaderLen+len(payload))
	frame = append(frame,
		byte(len(payload)>>16), byte(len(payload)>>8), byte(len(payload)),
		byte(http2.FrameSettings), 0,
		0, 0, 0, 0,
	)
	frame = append(frame, payload...)

	fr, err := http2.NewFramer(io.Discard, bytes.NewReader(frame)).ReadFrame()
	if err != nil {
		return nil, ErrBadSettings
	}

	settingsFrame, ok := fr.(*http2.SettingsFrame)
	if !ok || settingsFrame.IsAck() {
		return nil, ErrBadSettings
	}

	settings := make([]http2.Setting, 0, settingsFrame.NumSettings())
	err = settingsFrame.ForeachSetting(func(s http2.Setting) error {
		if err := s.Valid(); err != nil {
			return err
		}

		settings = append(settings, s)
		return nil
	})
	if err != nil {
		return nil, ErrBadSettings
	}

	return settings, nil
}

const frameHeaderLen = 9
