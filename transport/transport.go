package transport

import (
	"net"

	"github.com/indigo-web/rawhttp/config"
)

// Transport accepts connections and hands every one of them to the callback in a separate
// goroutine. The connection is closed once the callback returns.
type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}
