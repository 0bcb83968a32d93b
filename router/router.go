package router

import (
	"github.com/indigo-web/rawhttp/http"
)

// Router is the application. OnRequest is called for every successfully parsed request.
// OnError is called if a request couldn't be processed. The request may be then only
// partially filled. Returning nil from either results in 500 Internal Server Error.
type Router interface {
	OnRequest(request *http.Request) *http.Response
	OnError(request *http.Request, err error) *http.Response
}
