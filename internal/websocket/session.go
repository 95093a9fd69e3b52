package websocket

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/luciancaetano/wsnegotiate"
)

// Session implements the wsnegotiate.Session interface
type Session struct {
	id          string
	conn        net.Conn
	remoteAddr  string
	subprotocol string
	origin      string
	ctx         context.Context //nolint:containedctx // Session lifecycle.
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closed      bool
}

// bufferedConn serves bytes the HTTP server already buffered before the
// hijack ahead of the raw connection.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p) //nolint:wrapcheck // Transparent.
}

func newSession(parent context.Context, conn net.Conn, r *bufio.Reader, remoteAddr, subprotocol, origin string) *Session {
	ctx, cancel := context.WithCancel(parent)
	if r != nil && r.Buffered() > 0 {
		conn = &bufferedConn{Conn: conn, r: r}
	}

	return &Session{
		id:          uuid.New().String(),
		conn:        conn,
		remoteAddr:  remoteAddr,
		subprotocol: subprotocol,
		origin:      origin,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns a unique identifier for the upgraded connection
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer's network address
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// Subprotocol returns the negotiated subprotocol, empty when none was offered
func (s *Session) Subprotocol() string {
	return s.subprotocol
}

// Origin returns the negotiated origin, empty when none was sent
func (s *Session) Origin() string {
	return s.origin
}

// Context is cancelled when the session closes or the server stops
func (s *Session) Context() context.Context {
	return s.ctx
}

// Conn returns the hijacked connection, positioned right after the handshake
func (s *Session) Conn() net.Conn {
	return s.conn
}

// Close closes the underlying connection. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.cancel()

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline) //nolint:errcheck // Best effort.
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return errors.Wrap(err, wsnegotiate.ErrSessionClosed)
	}

	return nil
}

// IsAlive returns true until Close is called
func (s *Session) IsAlive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return !s.closed
}
