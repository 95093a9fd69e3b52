package wsnegotiate

import (
	"context"
	"net"
)

// Server defines a WebSocket opening-handshake server.
//
// Every request is handed to the handshake controller, which decides between
// upgrading, rejecting, or serving a static informational route. Accepted
// connections are switched to the WebSocket protocol and handed to the
// configured upgrade hook as a Session.
//
// Example usage:
//
//	import "github.com/luciancaetano/wsnegotiate/ws"
//
//	hs := ws.DefaultHandshakeConfig()
//	hs.Origins = ws.Options{ws.Option("https://example.com", 1)}
//
//	server := ws.New(ws.NewConfig(":3000", hs, ws.DefaultRateLimitConfig(),
//	    func(session wsnegotiate.Session) {
//	        log.Printf("upgraded %s with %q", session.ID(), session.Subprotocol())
//	    }))
//
//	server.Start(ctx)
type Server interface {
	// Start starts listening and serving handshakes.
	// It returns once the listener is up; cancelling ctx before that aborts the start.
	//
	// Returns an error if the server is already running or if there's a problem
	// binding to the network address.
	Start(ctx context.Context) error

	// Stop gracefully stops the server and closes every upgraded session.
	Stop(ctx context.Context) error

	// Addr returns the bound listen address once the server is running.
	Addr() string
}

// Session represents a connection that completed the opening handshake.
//
// The frame layer is not implemented here: the session exposes the raw
// upgraded connection and the negotiated values, and whoever receives it
// owns all further I/O.
type Session interface {
	// ID returns a unique identifier assigned when the handshake was accepted.
	ID() string

	// RemoteAddr returns the peer's network address, e.g. "192.168.1.100:54321".
	RemoteAddr() string

	// Subprotocol returns the negotiated Sec-WebSocket-Protocol value,
	// or an empty string when the client offered none.
	Subprotocol() string

	// Origin returns the negotiated Origin, or an empty string when the
	// client sent none.
	Origin() string

	// Context returns the session's lifecycle context.
	//
	// It is cancelled when the session is closed or the server stops.
	Context() context.Context

	// Conn returns the upgraded connection. Bytes already buffered by the
	// HTTP server are replayed before reads reach the socket.
	Conn() net.Conn

	// Close closes the underlying connection. Closing twice is a no-op.
	Close(ctx context.Context) error

	// IsAlive returns true until the session is closed.
	IsAlive() bool
}
