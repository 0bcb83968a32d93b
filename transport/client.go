package transport

import (
	"context"
	"net"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/internal/timer"
	"github.com/indigo-web/utils/unreader"
)

// Client is a connection as the protocol layer sees it: reads return views into an internal
// buffer, which stay valid until the next Read. Bytes which were read but not consumed are
// returned via Unread and will be returned by the next Read before anything else.
type Client interface {
	Read() ([]byte, error)
	Unread([]byte)
	Write([]byte) (int, error)
	Conn() net.Conn
	Remote() net.Addr
	Close() error
}

// aLongTimeAgo is a non-zero time in the past, used to interrupt pending I/O immediately.
var aLongTimeAgo = time.Unix(1, 0)

type client struct {
	ctx          context.Context
	stop         func() bool
	conn         net.Conn
	unreader     unreader.Unreader
	buff         []byte
	readTimeout  time.Duration
	writeTimeout time.Duration
	read         func() ([]byte, error)
}

// NewClient wraps the connection. Once the context is done, any pending or future I/O on
// the client fails with the context's error.
func NewClient(ctx context.Context, conn net.Conn, cfg config.NET) Client {
	c := &client{
		ctx:          ctx,
		conn:         conn,
		buff:         make([]byte, cfg.ReadBufferSize),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
	c.read = c.readConn
	c.stop = context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})

	return c
}

// Read returns pending data if any, otherwise reads from the connection. If the connection
// returned data along with an error, the data is returned alone, and the error is expected
// to be reported by the next call.
func (c *client) Read() ([]byte, error) {
	return c.unreader.PendingOr(c.read)
}

func (c *client) readConn() ([]byte, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(timer.Deadline(c.readTimeout)); err != nil {
			return nil, err
		}
	}

	// the check must go after the deadline is set, otherwise the deadline set by the
	// cancellation might be overridden
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)
	if n > 0 {
		return c.buff[:n], nil
	}

	if err != nil && c.ctx.Err() != nil {
		return nil, c.ctx.Err()
	}

	return c.buff[:0], err
}

// Unread preserves a chunk of data from previous read for the next read.
func (c *client) Unread(b []byte) {
	c.unreader.Unread(b)
}

// Write writes data into the underlying connection.
func (c *client) Write(b []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(timer.Deadline(c.writeTimeout)); err != nil {
			return 0, err
		}
	}

	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := c.conn.Write(b)
	if err != nil && c.ctx.Err() != nil {
		return n, c.ctx.Err()
	}

	return n, err
}

// Conn unwraps the underlying net.Conn.
func (c *client) Conn() net.Conn {
	return c.conn
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	c.stop()
	return c.conn.Close()
}
