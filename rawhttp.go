package rawhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/indigo-web/rawhttp/config"
	"github.com/indigo-web/rawhttp/internal/protocol/http1"
	"github.com/indigo-web/rawhttp/router"
	"github.com/indigo-web/rawhttp/transport"
	"go.uber.org/zap"
)

// Upgrades are the collaborators taking over upgraded connections. See http1.Upgrades.
type Upgrades = http1.Upgrades

var ErrNoRouter = errors.New("rawhttp: no router passed")

type listenerKind uint8

const (
	plainListener listenerKind = iota
	certListener
	autoListener
)

type listener struct {
	kind      listenerKind
	addr      string
	cert, key string
	domains   []string
}

type boundListener interface {
	transport.Transport
	Addr() net.Addr
}

// App is the HTTP/1.x server. It's configured via chained calls and started with Serve.
type App struct {
	addr      string
	cfg       *config.Config
	logger    *zap.Logger
	upgrades  Upgrades
	reusePort bool
	listeners []listener
	hooks     hooks
}

// New returns a new App serving plain HTTP on the address.
func New(addr string) *App {
	return &App{
		addr:   addr,
		cfg:    config.Default(),
		logger: zap.NewNop(),
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

func (a *App) Logger(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	a.logger = logger
	return a
}

// Upgrades sets the collaborators handling WebSocket and h2c sessions. Without them, the
// upgrade requests are served as the plain ones.
func (a *App) Upgrades(upgrades Upgrades) *App {
	a.upgrades = upgrades
	return a
}

// ReusePort binds every listener with SO_REUSEPORT.
func (a *App) ReusePort(flag bool) *App {
	a.reusePort = flag
	return a
}

// TLS adds an HTTPS listener on the address using the certificate.
func (a *App) TLS(addr, cert, key string) *App {
	a.listeners = append(a.listeners, listener{
		kind: certListener,
		addr: addr,
		cert: cert,
		key:  key,
	})

	return a
}

// AutoHTTPS adds an HTTPS listener on the address with certificates obtained via ACME.
// On localhost, a self-signed certificate is generated instead.
func (a *App) AutoHTTPS(addr string, domains ...string) *App {
	a.listeners = append(a.listeners, listener{
		kind:    autoListener,
		addr:    addr,
		domains: domains,
	})

	return a
}

// NotifyOnStart calls the callback once all the listeners are bound.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback once all the listeners are closed and every connection
// is gone.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve binds all the listeners and serves connections until the context is done or any
// of the listeners fails. Connections are served with the context, so they're interrupted
// once it's done.
func (a *App) Serve(ctx context.Context, r router.Router) error {
	if r == nil {
		return ErrNoRouter
	}

	listeners := append([]listener{{kind: plainListener, addr: a.addr}}, a.listeners...)
	transports := make([]boundListener, len(listeners))
	for i, l := range listeners {
		t, err := a.newTransport(l)
		if err != nil {
			return err
		}

		transports[i] = t
	}

	server := http1.NewServer(a.cfg, r, a.upgrades, a.logger)
	onConn := func(conn net.Conn) {
		server.Serve(ctx, transport.NewClient(ctx, conn, a.cfg.NET))
	}

	supervisor := transport.NewSupervisor()
	for i, t := range transports {
		if err := supervisor.Add(listeners[i].addr, t, onConn); err != nil {
			return err
		}

		a.logger.Info("listening", zap.Stringer("addr", t.Addr()))
	}

	callIfNotNil(a.hooks.OnStart)
	err := supervisor.Run(ctx, a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	if err != nil {
		a.logger.Error("listener failed", zap.Error(err))
	}

	return err
}

func (a *App) newTransport(l listener) (boundListener, error) {
	reusePort := a.reusePort || a.cfg.NET.ReusePort

	switch l.kind {
	case plainListener:
		return transport.NewTCP().ReusePort(reusePort), nil
	case certListener:
		cert, err := tls.LoadX509KeyPair(l.cert, l.key)
		if err != nil {
			return nil, err
		}

		t := transport.NewTLS([]tls.Certificate{cert})
		t.ReusePort(reusePort)
		return t, nil
	default:
		if isLocalhost(l.addr) {
			cert, err := selfSignedCert()
			if err != nil {
				a.logger.Warn("can't generate a self-signed certificate, the listener is plain",
					zap.String("addr", l.addr), zap.Error(err))
				return transport.NewTCP().ReusePort(reusePort), nil
			}

			t := transport.NewTLS([]tls.Certificate{cert})
			t.ReusePort(reusePort)
			return t, nil
		}

		cache, err := cacheDir()
		if err != nil {
			a.logger.Warn("auto HTTPS: not using a cache", zap.Error(err))
		}

		t := transport.NewAutoTLS(cache, l.domains...)
		t.ReusePort(reusePort)
		return t, nil
	}
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
