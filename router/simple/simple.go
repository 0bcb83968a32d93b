package simple

import (
	"github.com/indigo-web/rawhttp/http"
	"github.com/indigo-web/rawhttp/router"
)

type (
	Handler      func(*http.Request) *http.Response
	ErrorHandler func(*http.Request, error) *http.Response
)

type simpleRouter struct {
	handler    Handler
	errHandler ErrorHandler
}

// New returns a router calling the handler for every request. If errHandler is nil, errors
// are answered with http.Error.
func New(handler Handler, errHandler ErrorHandler) router.Router {
	if errHandler == nil {
		errHandler = http.Error
	}

	return simpleRouter{
		handler:    handler,
		errHandler: errHandler,
	}
}

func (r simpleRouter) OnRequest(request *http.Request) *http.Response {
	return r.handler(request)
}

func (r simpleRouter) OnError(request *http.Request, err error) *http.Response {
	return r.errHandler(request, err)
}
