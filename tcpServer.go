package modbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrBindPermission is matched by bind failures caused by missing privileges, typically a port below 1024.
	ErrBindPermission = errors.New("permission denied")
	// ErrBindInUse is matched by bind failures on an address another process is listening on.
	ErrBindInUse = errors.New("address already in use")
)

// BindError is returned by NewTCPServer when the listening socket cannot be established.
type BindError struct {
	Address string
	Err     error
	kind    error
}

func (e *BindError) Error() string {
	if errors.Is(e.kind, ErrBindPermission) {
		return fmt.Sprintf("unable to listen on %v: %v (ports below 1024 require elevated privileges, try --port 5020 or run with sudo)", e.Address, e.Err)
	}
	return fmt.Sprintf("unable to listen on %v: %v", e.Address, e.Err)
}

// Unwrap exposes both the classification (ErrBindPermission, ErrBindInUse) and the underlying error.
func (e *BindError) Unwrap() []error {
	if e.kind == nil {
		return []error{e.Err}
	}
	return []error{e.kind, e.Err}
}

func newBindError(address string, err error) *BindError {
	be := &BindError{Address: address, Err: err}
	switch {
	case errors.Is(err, os.ErrPermission):
		be.kind = ErrBindPermission
	case errors.Is(err, syscall.EADDRINUSE):
		be.kind = ErrBindInUse
	}
	return be
}

// TCPServer accepts connections from remote clients and serves each one, in its own go-routine,
// with a single Server.
type TCPServer struct {
	listener net.Listener
	host     string
	server   *Server
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	stopping bool
	sessions map[*session]struct{}
	wg       sync.WaitGroup
	closed   chan struct{}
}

/*
NewTCPServer establishes a listening socket to accept incoming TCP requests. Use ":{port}" style value to bind
to all interfaces on the host. Use a specific local IP or local hostname to bind to just one interface. Port 0
picks a free port, reported by Addr.

Example bind to all interfaces: NewTCPServer(":502", server, logger)

Example bind to just localhost: NewTCPServer("localhost:5020", server, logger)

Failures to bind are returned as *BindError. A nil logger means the logrus standard logger.
*/
func NewTCPServer(host string, server *Server, logger logrus.FieldLogger) (*TCPServer, error) {
	if server == nil {
		return nil, errors.New("tcp server requires a modbus server")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l, err := net.Listen("tcp", host)
	if err != nil {
		return nil, newBindError(host, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &TCPServer{
		listener: l,
		host:     host,
		server:   server,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[*session]struct{}),
		closed:   make(chan struct{}),
	}
	go t.monitor()
	return t, nil
}

// Addr returns the address the server is listening on.
func (t *TCPServer) Addr() net.Addr {
	return t.listener.Addr()
}

// WaitClosed will simply wait until the listener is closed. This is useful for creating
// programs that don't exit until the listener is terminated.
func (t *TCPServer) WaitClosed() {
	<-t.closed
}

// Shutdown stops accepting connections, lets each session answer the request it is handling and
// then closes it. Idle sessions are interrupted. Shutdown returns when every session has exited, or
// with ctx's error once ctx is done, in which case the remaining connections are closed abruptly.
func (t *TCPServer) Shutdown(ctx context.Context) error {
	err := t.stop()
	t.mu.Lock()
	for s := range t.sessions {
		s.interrupt()
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		<-t.closed
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		t.closeSessions()
		return ctx.Err()
	}
}

// Close stops accepting connections and closes every open session immediately.
func (t *TCPServer) Close() error {
	err := t.stop()
	t.closeSessions()
	return err
}

func (t *TCPServer) stop() error {
	t.mu.Lock()
	t.stopping = true
	t.mu.Unlock()
	t.cancel()
	err := t.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (t *TCPServer) closeSessions() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for s := range t.sessions {
		s.conn.Close()
	}
}

func (t *TCPServer) monitor() {
	defer close(t.closed)
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				t.log.WithField("address", t.host).Info("listener closed")
			} else {
				t.log.WithError(err).WithField("address", t.host).Error("error awaiting connections")
			}
			return
		}
		t.startSession(conn)
	}
}

func (t *TCPServer) startSession(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
		tc.SetKeepAlivePeriod(time.Second * 60)
		tc.SetNoDelay(true)
	}

	s := newSession(conn, t.server, t.log)
	t.mu.Lock()
	if t.stopping {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.sessions[s] = struct{}{}
	t.wg.Add(1)
	t.mu.Unlock()

	t.server.diag.sessionOpened()
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			delete(t.sessions, s)
			t.mu.Unlock()
			t.server.diag.sessionClosed()
		}()
		s.serve(t.ctx)
	}()
}
