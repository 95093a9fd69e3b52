package websocket

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/handshake"
	"github.com/luciancaetano/wsnegotiate/internal/log"
	"github.com/luciancaetano/wsnegotiate/internal/protocol"
)

const (
	handshakeWriteTimeout = 10 * time.Second
	limiterIdleTTL        = 3 * time.Minute
	limiterSweepInterval  = time.Minute
)

// OnUpgradeFn is called in its own goroutine for every accepted handshake,
// after the 101 response was written. The session is closed when it returns.
type OnUpgradeFn = func(session wsnegotiate.Session)

// OnHandshakeFn observes every request handled by the server, accepted or not.
// It runs synchronously on the request goroutine; keep it cheap.
type OnHandshakeFn = func(event HandshakeEvent)

// HandshakeEvent describes one handled request.
type HandshakeEvent struct {
	RequestID  string
	RemoteAddr string
	Method     string
	Path       string
	Outcome    handshake.OutcomeKind
	Kind       handshake.ErrorKind
	Status     int
	Duration   time.Duration
}

type ServerConfig struct {
	Handshake         handshake.Config
	RateLimitConfig   *RateLimitConfig
	OnUpgrade         OnUpgradeFn
	OnHandshake       OnHandshakeFn
	Addr              string
	StaticBody        string
	ReadHeaderTimeout time.Duration
}

// RateLimitConfig defines per remote IP handshake rate limiting
type RateLimitConfig struct {
	// RequestsPerSecond defines how many requests an IP can make per second
	RequestsPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration
// Allows 20 handshakes per second per IP with burst of 40
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 20,
		Burst:             40,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// Server implements the wsnegotiate.Server interface
type Server struct {
	ctx        context.Context //nolint:containedctx // Parent of every session context.
	cancel     context.CancelFunc
	server     *http.Server
	listener   net.Listener
	controller *handshake.Controller

	sessions sync.Map // map[string]*Session
	limiters sync.Map // map[string]*limiterEntry

	rateLimitConfig *RateLimitConfig
	onUpgrade       OnUpgradeFn
	onHandshake     OnHandshakeFn

	addr              string
	staticBody        string
	readHeaderTimeout time.Duration

	mu      sync.RWMutex
	running bool
}

// New creates a handshake server.
//
// A nil RateLimitConfig means DefaultRateLimitConfig(); an empty StaticBody
// falls back to the informational default.
func New(cfg *ServerConfig) *Server {
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = DefaultRateLimitConfig()
	}
	if cfg.StaticBody == "" {
		cfg.StaticBody = wsnegotiate.DefaultStaticBody
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		ctx:               ctx,
		cancel:            cancel,
		addr:              cfg.Addr,
		controller:        handshake.New(cfg.Handshake),
		rateLimitConfig:   cfg.RateLimitConfig,
		onUpgrade:         cfg.OnUpgrade,
		onHandshake:       cfg.OnHandshake,
		staticBody:        cfg.StaticBody,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()

		return errors.New(wsnegotiate.ErrServerAlreadyRunning)
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()

		return errors.Wrapf(err, "failed to listen on %v", s.addr)
	}
	if s.ctx.Err() != nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.readHeaderTimeout,
		MaxHeaderBytes:    protocol.MaxHandshakeHeaderBytes,
	}
	s.running = true
	server, serverCtx := s.server, s.ctx
	s.mu.Unlock()

	if s.rateLimitConfig.Enabled {
		go s.sweepLimiters(serverCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Check for immediate serve errors with a small timeout
	select {
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.cancel()

		return errors.Wrap(err, "server failed to start")
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.Stop(stopCtx) //nolint:contextcheck // The start context is already done.
	case <-time.After(100 * time.Millisecond):
		log.Info(fmt.Sprintf("server started listening on %v...", listener.Addr()))

		return nil
	}
}

// Stop closes every upgraded session and shuts the HTTP server down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()

		return nil
	}
	s.running = false
	server := s.server
	s.mu.Unlock()

	var result *multierror.Error
	s.sessions.Range(func(_, value any) bool {
		if session, ok := value.(*Session); ok {
			if err := session.Close(ctx); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "failed to close session %v", session.ID()))
			}
		}

		return true
	})
	s.cancel()

	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "server shutdown failed"))
		}
	}

	return result.ErrorOrNil()
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}

	return s.addr
}

// ServeHTTP runs the handshake controller and renders its outcome
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	event := HandshakeEvent{
		RequestID:  uuid.NewString(),
		RemoteAddr: r.RemoteAddr,
		Method:     r.Method,
		Path:       r.URL.Path,
	}
	hijacked := false
	defer func() {
		if rec := recover(); rec != nil {
			log.Error(errors.Errorf("panic while handling handshake: %v", rec), "request_id", event.RequestID)
			event.Status = http.StatusInternalServerError
			if !hijacked {
				writeText(w, http.StatusInternalServerError, wsnegotiate.ReasonInternalError)
			}
		}
		event.Duration = time.Since(started)
		s.observe(&event)
	}()

	if !s.allow(r.RemoteAddr) {
		log.Warn("handshake rate limited", "request_id", event.RequestID, "remote_addr", r.RemoteAddr)
		event.Status = http.StatusTooManyRequests
		writeText(w, http.StatusTooManyRequests, wsnegotiate.ReasonTooManyRequests)

		return
	}

	_, canHijack := w.(http.Hijacker)
	out := s.controller.Handle(handshake.FromHTTP(r, canHijack))
	event.Outcome = out.Kind
	event.Status = out.Status

	switch out.Kind {
	case handshake.Static:
		writeText(w, http.StatusOK, s.staticBody)
	case handshake.Rejected:
		event.Kind = out.Err.Kind
		log.Warn("handshake rejected", "request_id", event.RequestID, "remote_addr", r.RemoteAddr,
			"status", out.Status, "kind", out.Err.Kind.String(), "cause", out.Err.Error())
		for _, f := range out.Headers {
			w.Header().Set(f.Name, f.Value)
		}
		writeText(w, out.Status, out.Reason)
	case handshake.Accepted:
		if s.controller.Config().Echo {
			event.Status = http.StatusOK
			writeText(w, http.StatusOK, out.EchoBody())

			return
		}
		hijacked, event.Status = s.upgrade(w, r, &out, event.RequestID)
	}
}

// upgrade hijacks the connection, writes the 101 response and hands the
// session to the upgrade hook.
func (s *Server) upgrade(w http.ResponseWriter, r *http.Request, out *handshake.Outcome, requestID string) (bool, int) {
	data, err := protocol.EncodeSwitchingProtocols(out.Headers)
	if err != nil {
		log.Error(errors.Wrap(err, "failed to encode handshake response"), "request_id", requestID)
		writeText(w, http.StatusInternalServerError, wsnegotiate.ReasonInternalError)

		return false, http.StatusInternalServerError
	}
	hj, ok := w.(http.Hijacker)
	if !ok {
		writeText(w, http.StatusInternalServerError, wsnegotiate.ReasonUpgradeUnavailable)

		return false, http.StatusInternalServerError
	}
	conn, brw, err := hj.Hijack()
	if err != nil {
		log.Error(errors.Wrap(err, wsnegotiate.ErrHijackFailed), "request_id", requestID)
		writeText(w, http.StatusInternalServerError, wsnegotiate.ReasonUpgradeUnavailable)

		return false, http.StatusInternalServerError
	}

	_ = conn.SetWriteDeadline(time.Now().Add(handshakeWriteTimeout)) //nolint:errcheck // Best effort.
	if _, err = brw.Write(data); err == nil {
		err = brw.Flush()
	}
	if err != nil {
		log.Error(errors.Wrap(err, "failed to complete handshake"), "request_id", requestID)
		log.Error(errors.Wrap(conn.Close(), "failed to close connection"), "request_id", requestID)

		return true, out.Status
	}
	_ = conn.SetWriteDeadline(time.Time{}) //nolint:errcheck // Best effort.

	session := newSession(s.ctx, conn, brw.Reader, r.RemoteAddr, out.Subprotocol, out.Origin)
	s.sessions.Store(session.ID(), session)
	log.Debug("handshake accepted", "request_id", requestID, "session_id", session.ID(),
		"subprotocol", out.Subprotocol, "origin", out.Origin)

	go s.runSession(session)

	return true, out.Status
}

// runSession hands the session to the upgrade hook and cleans up afterwards
func (s *Server) runSession(session *Session) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error(errors.Errorf("panic in upgrade hook: %v", rec), "session_id", session.ID())
		}
		s.sessions.Delete(session.ID())
		log.Error(errors.Wrap(session.Close(context.Background()), "failed to close session"), "session_id", session.ID())
	}()

	if s.onUpgrade != nil {
		s.onUpgrade(session)
	}
}

// GetSession returns an upgraded session by ID
func (s *Server) GetSession(id string) (*Session, bool) {
	if session, ok := s.sessions.Load(id); ok {
		return session.(*Session), true //nolint:forcetypeassert // Only sessions are stored.
	}

	return nil, false
}

// SessionCount returns the number of live upgraded sessions
func (s *Server) SessionCount() int {
	count := 0
	s.sessions.Range(func(_, _ any) bool {
		count++

		return true
	})

	return count
}

func (s *Server) observe(event *HandshakeEvent) {
	log.Debug("handshake handled", "request_id", event.RequestID, "remote_addr", event.RemoteAddr,
		"method", event.Method, "path", event.Path, "status", event.Status, "duration", event.Duration)
	if s.onHandshake != nil {
		s.onHandshake(*event)
	}
}

// allow applies the per remote IP token bucket
func (s *Server) allow(remoteAddr string) bool {
	if s.rateLimitConfig == nil || !s.rateLimitConfig.Enabled {
		return true
	}
	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		ip = host
	}
	entry, ok := s.limiters.Load(ip)
	if !ok {
		fresh := &limiterEntry{limiter: rate.NewLimiter(s.rateLimitConfig.RequestsPerSecond, s.rateLimitConfig.Burst)}
		entry, _ = s.limiters.LoadOrStore(ip, fresh)
	}
	le := entry.(*limiterEntry) //nolint:forcetypeassert // Only limiter entries are stored.
	le.lastSeen.Store(time.Now().UnixNano())

	return le.limiter.Allow()
}

// sweepLimiters forgets IPs that have been idle for a while
func (s *Server) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.limiters.Range(func(key, value any) bool {
				le := value.(*limiterEntry) //nolint:forcetypeassert // Only limiter entries are stored.
				if now.Sub(time.Unix(0, le.lastSeen.Load())) > limiterIdleTTL {
					s.limiters.Delete(key)
				}

				return true
			})
		}
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set(wsnegotiate.HeaderContentType, wsnegotiate.ContentTypeText)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body) //nolint:errcheck // Nothing to do if the peer is gone.
}
