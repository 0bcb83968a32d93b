package dummy

import (
	"io"
	"net"
	"time"
)

var _ net.Conn = new(Conn)

// Conn is a net.Conn reading from Input and collecting written data into Data, unless
// it's nop.
type Conn struct {
	Input []byte
	Data  []byte
	nop   bool
}

func (c *Conn) Read(b []byte) (n int, err error) {
	if len(c.Input) == 0 {
		return 0, io.EOF
	}

	n = copy(b, c.Input)
	c.Input = c.Input[n:]

	return n, nil
}

func (c *Conn) Write(b []byte) (n int, err error) {
	if !c.nop {
		c.Data = append(c.Data, b...)
	}

	return len(b), nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) LocalAddr() net.Addr {
	return nil
}

func (c *Conn) RemoteAddr() net.Addr {
	return nil
}

func (c *Conn) SetDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetReadDeadline(time.Time) error {
	return nil
}

func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *Conn) Nop() *Conn {
	c.nop = true
	return c
}
