package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/rawhttp/config"
	"github.com/valyala/tcplisten"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type TCP struct {
	l         listener
	wg        *sync.WaitGroup
	stop      *atomic.Bool
	reusePort bool
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(l listener) TCP {
	return TCP{
		l:    l,
		wg:   new(sync.WaitGroup),
		stop: new(atomic.Bool),
	}
}

// ReusePort makes the listener bind with SO_REUSEPORT, so the same address might be bound
// by multiple processes and the kernel balances incoming connections between them.
func (t *TCP) ReusePort(flag bool) *TCP {
	t.reusePort = flag
	return t
}

func bindTCP(addr string, reusePort bool) (listener, error) {
	if reusePort {
		cfg := tcplisten.Config{
			ReusePort: true,
		}

		l, err := cfg.NewListener("tcp4", addr)
		if err != nil {
			return nil, err
		}

		tcpListener, ok := l.(listener)
		if !ok {
			_ = l.Close()
			return nil, fmt.Errorf("reuseport listener %T doesn't support deadlines", l)
		}

		return tcpListener, nil
	}

	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr, t.reusePort)
	return err
}

// Addr returns the bound address. Useful when bound to the port 0.
func (t *TCP) Addr() net.Addr {
	return t.l.Addr()
}

func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn)) error {
	for !t.stop.Load() {
		err := t.l.SetDeadline(time.Now().Add(cfg.AcceptLoopInterruptPeriod))
		if err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			if t.stop.Load() {
				return nil
			}

			return err
		}

		t.wg.Add(1)
		go func(conn net.Conn) {
			defer t.wg.Done()
			cb(conn)
			_ = conn.Close()
		}(conn)
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() {
	_ = t.l.Close()
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
