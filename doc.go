// Package wsnegotiate implements the server side of the WebSocket opening handshake (RFC 6455 §4).
//
// A request is driven through a fixed sequence of checks: method, path, Upgrade header, then
// negotiation of Sec-WebSocket-Protocol and Origin against prioritized option lists, and finally
// validation of Sec-WebSocket-Key. The first failing check decides the response status. When every
// check passes the server writes 101 Switching Protocols with the computed Sec-WebSocket-Accept
// token and hands the raw connection to the caller as a Session.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/wsnegotiate"
//	    "github.com/luciancaetano/wsnegotiate/ws"
//	)
//
//	cfg := ws.DefaultHandshakeConfig() // /websocket, chat=1 superchat=2, any origin
//	cfg.Origins = ws.Options{ws.Option("https://example.com", 1)}
//
//	server := ws.New(ws.NewConfig(":8080", cfg, ws.DefaultRateLimitConfig(), func(s wsnegotiate.Session) {
//	    // s.Conn() is positioned right after the handshake.
//	}))
//	server.Start(ctx)
//
// # Negotiation
//
// The client's header value is split on the literal ", " sequence. Each token is matched against
// the option list, exactly or through a "*" option, and the match with the highest priority wins.
// Ties go to the token the client listed first. A missing header skips negotiation; a header whose
// tokens all fail to match rejects the handshake.
//
// # Status Codes
//
//	405  method is not GET
//	404  path is neither the handshake path nor a static route
//	406  Upgrade is missing or not exactly "websocket"
//	400  no acceptable sub-protocol, or a malformed Sec-WebSocket-Key
//	403  origin not allowed
//	426  unsupported Sec-WebSocket-Version (strict mode)
//	429  per IP handshake rate limit exceeded
//	500  the connection cannot be taken over
//
// # Diagnostics
//
// In echo mode an accepted handshake is answered with 200 and the request's header lines, the key
// replaced by the accept token and negotiated headers replaced by their selected values.
//
// The cmd/wsnegotiate binary serves handshakes from application.yaml, WSNEGOTIATE_* environment
// variables and flags.
package wsnegotiate
