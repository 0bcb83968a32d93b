package transport

import (
	"context"
	"net"

	"github.com/indigo-web/rawhttp/config"
)

// Supervisor runs multiple transports at once. Once any of them stops, all the others are
// stopped as well.
type Supervisor struct {
	ts []boundTransport
}

func NewSupervisor() *Supervisor {
	return new(Supervisor)
}

func (s *Supervisor) Add(addr string, transport Transport, cb func(net.Conn)) error {
	err := transport.Bind(addr)
	if err != nil {
		s.close()
		return err
	}

	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})

	return nil
}

// Run blocks until either the context is done or any of the transports returned. In the
// latter case its error is returned. All the transports are stopped and waited for before
// returning.
func (s *Supervisor) Run(ctx context.Context, cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	errch := make(chan error, len(s.ts))

	for _, t := range s.ts {
		go func(t boundTransport) {
			errch <- t.t.Listen(cfg, t.cb)
		}(t)
	}

	var err error

	select {
	case err = <-errch:
		s.stop()
		drain(errch, len(s.ts)-1)
	case <-ctx.Done():
		s.stop()
		drain(errch, len(s.ts))
	}

	s.close()

	return err
}

func (s *Supervisor) stop() {
	for _, t := range s.ts {
		t.t.Stop()
	}

	for _, t := range s.ts {
		t.t.Wait()
	}
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	cb func(conn net.Conn)
	t  Transport
}

func drain(ch <-chan error, n int) {
	for range n {
		<-ch
	}
}
