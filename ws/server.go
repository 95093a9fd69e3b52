package ws

import (
	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/handshake"
	"github.com/luciancaetano/wsnegotiate/internal/negotiate"
	"github.com/luciancaetano/wsnegotiate/internal/websocket"
)

type RateLimitConfig = websocket.RateLimitConfig
type HandshakeConfig = handshake.Config
type HandshakeEvent = websocket.HandshakeEvent
type OnUpgradeFn = websocket.OnUpgradeFn
type OnHandshakeFn = websocket.OnHandshakeFn
type ServerConfig = *websocket.ServerConfig
type Options = negotiate.Options

// New creates a handshake server.
//
// Parameters:
//   - cfg: built with NewConfig, or by hand for the less common fields
//     (ReadHeaderTimeout, StaticBody, OnHandshake).
//
// Example:
//
//	cfg := ws.NewConfig(":8080", ws.DefaultHandshakeConfig(), ws.DefaultRateLimitConfig(), func(s wsnegotiate.Session) {
//	    log.Printf("upgraded %s speaking %q", s.RemoteAddr(), s.Subprotocol())
//	})
//	server := ws.New(cfg)
//	server.Start(ctx)
func New(cfg ServerConfig) wsnegotiate.Server {
	return websocket.New(cfg)
}

func NewConfig(addr string, handshakeConfig HandshakeConfig, rateLimitConfig *RateLimitConfig, onUpgrade OnUpgradeFn) ServerConfig {
	return &websocket.ServerConfig{
		Addr:            addr,
		Handshake:       handshakeConfig,
		RateLimitConfig: rateLimitConfig,
		OnUpgrade:       onUpgrade,
	}
}

// DefaultHandshakeConfig serves /websocket, offers chat=1 and superchat=2,
// and accepts any origin.
func DefaultHandshakeConfig() HandshakeConfig {
	return handshake.DefaultConfig()
}

// Option builds a negotiable value with its priority. Higher wins.
func Option(value string, priority int) negotiate.Option {
	return negotiate.Option{Value: value, Priority: priority}
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}

// ComputeAccept returns the Sec-WebSocket-Accept token for a client key.
func ComputeAccept(key string) string {
	return handshake.ComputeAccept(key)
}
