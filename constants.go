package wsnegotiate

// Opening-handshake header names.
const (
	HeaderUpgrade              = "Upgrade"
	HeaderConnection           = "Connection"
	HeaderOrigin               = "Origin"
	HeaderSecWebSocketKey      = "Sec-WebSocket-Key"
	HeaderSecWebSocketAccept   = "Sec-WebSocket-Accept"
	HeaderSecWebSocketProtocol = "Sec-WebSocket-Protocol"
	HeaderSecWebSocketVersion  = "Sec-WebSocket-Version"
	HeaderContentType          = "Content-Type"
)

// Fixed handshake values (RFC 6455 §4.2).
const (
	// WebSocketGUID is appended to the client key before hashing.
	WebSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	UpgradeWebSocket  = "websocket"
	ConnectionUpgrade = "Upgrade"
	SupportedVersion  = "13"

	// MissingUpgradeValue stands in for an absent Upgrade header.
	MissingUpgradeValue = "Missing Upgrade value"

	ContentTypeText = "text/plain; charset=utf-8"
)

// Default routing.
const (
	DefaultPath       = "/websocket"
	DefaultStaticPath = "/"
	DefaultStaticBody = "Try to request /websocket"
)

// Rejection reasons, sent as the plain-text response body.
const (
	ReasonMethodNotAllowed     = "Method Not Allowed"
	ReasonNotFound             = "Not Found"
	ReasonUnacceptableUpgrade  = "Unacceptable Upgrade value"
	ReasonNoSubprotocol        = "No acceptable sub-protocol"
	ReasonOriginNotAllowed     = "Origin not allowed"
	ReasonMissingKey           = "Missing or malformed Sec-WebSocket-Key"
	ReasonUnsupportedVersion   = "Unsupported WebSocket version"
	ReasonConnectionNotUpgrade = "Connection header must include Upgrade"
	ReasonUpgradeUnavailable   = "Connection cannot be upgraded"
	ReasonTooManyRequests      = "Too Many Requests"
	ReasonInternalError        = "Internal Server Error"
)

// Transport errors
const (
	ErrServerAlreadyRunning = "server already running"
	ErrSessionClosed        = "session is closed"
	ErrHijackFailed         = "failed to hijack connection"
)
