package headers

import (
	"slices"
	"strings"

	"github.com/indigo-web/rawhttp/http/status"
	"github.com/indigo-web/rawhttp/kv"
	"golang.org/x/net/http/httpguts"
)

type storage = kv.Storage

// Headers is a case-insensitive ordered multimap. Values must never contain CR or LF, so
// every way of putting one in panics with a *status.ContractError if they do.
type Headers struct {
	storage
}

func New() *Headers {
	return new(Headers)
}

func NewPrealloc(n int) *Headers {
	return &Headers{storage: *kv.NewPrealloc(n)}
}

// NewFromMap is mostly useful in tests. See kv.NewFromMap for ordering notes.
func NewFromMap(m map[string][]string) *Headers {
	for _, values := range m {
		for _, value := range values {
			mustBeValid(value)
		}
	}

	return &Headers{storage: *kv.NewFromMap(m)}
}

func (h *Headers) Add(key, value string) *Headers {
	mustBeValid(value)
	h.storage.Add(key, value)
	return h
}

func (h *Headers) Set(key, value string) *Headers {
	mustBeValid(value)
	h.storage.Set(key, value)
	return h
}

func (h *Headers) Delete(key string) *Headers {
	h.storage.Delete(key)
	return h
}

func (h *Headers) Clear() *Headers {
	h.storage.Clear()
	return h
}

func (h *Headers) Clone() *Headers {
	return &Headers{storage: *h.storage.Clone()}
}

// Expose returns a copy of the pairs in their order.
func (h *Headers) Expose() []kv.Pair {
	return slices.Clone(h.storage.Expose())
}

// ContainsToken reports whether any of the key's values holds the token as a
// comma-separated element. Tokens are compared case-insensitively, as Connection and
// TE tokens are.
func (h *Headers) ContainsToken(key, token string) bool {
	return httpguts.HeaderValuesContainsToken(slices.Collect(h.Values(key)), token)
}

// Joined returns all the values of the key glued with ", ", as they are sent on the wire.
func (h *Headers) Joined(key string) string {
	return strings.Join(slices.Collect(h.Values(key)), ", ")
}

func mustBeValid(value string) {
	if strings.ContainsAny(value, "\r\n") {
		panic(status.ErrHeaderValueMalformed)
	}
}
