package handshake

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/negotiate"
)

// Config is the controller's deployment configuration. It is only read
// after New, so one Config may back any number of concurrent handshakes.
type Config struct {
	// Path is the only path that negotiates an upgrade.
	Path string
	// StaticPaths are recognized informational routes answered by the
	// transport without a handshake.
	StaticPaths []string
	// Subprotocols ranks acceptable Sec-WebSocket-Protocol values.
	Subprotocols negotiate.Options
	// Origins ranks acceptable Origin values. Use "*" to accept any origin.
	Origins negotiate.Options
	// Strict additionally requires "Connection: Upgrade" and
	// "Sec-WebSocket-Version: 13".
	Strict bool
	// Echo builds the diagnostic header echo on accepted handshakes.
	Echo bool
}

// DefaultConfig returns the configuration used when nothing else is loaded.
func DefaultConfig() Config {
	return Config{
		Path:        wsnegotiate.DefaultPath,
		StaticPaths: []string{wsnegotiate.DefaultStaticPath},
		Subprotocols: negotiate.Options{
			{Value: "chat", Priority: 1},
			{Value: "superchat", Priority: 2},
		},
		Origins: negotiate.Options{{Value: negotiate.Wildcard, Priority: 0}},
	}
}

// Controller drives a request through the handshake state machine.
// It holds no per-request state and is safe for concurrent use.
type Controller struct {
	static map[string]struct{}
	cfg    Config
}

// New creates a Controller. An empty Path falls back to the default.
func New(cfg Config) *Controller {
	if cfg.Path == "" {
		cfg.Path = wsnegotiate.DefaultPath
	}
	static := make(map[string]struct{}, len(cfg.StaticPaths))
	for _, p := range cfg.StaticPaths {
		if p != cfg.Path {
			static[p] = struct{}{}
		}
	}

	return &Controller{cfg: cfg, static: static}
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Handle runs the state machine for one request and returns its only Outcome.
func (c *Controller) Handle(req *Request) Outcome {
	if req.Method != http.MethodGet {
		return rejected(newError(KindMethodNotAllowed, "method %q", req.Method))
	}

	if req.Path != c.cfg.Path {
		if _, ok := c.static[req.Path]; ok {
			return static()
		}

		return rejected(newError(KindNotFound, "path %q", req.Path))
	}

	upgrade, ok := req.Lookup(wsnegotiate.HeaderUpgrade)
	if !ok {
		upgrade = wsnegotiate.MissingUpgradeValue
	}
	if upgrade != wsnegotiate.UpgradeWebSocket {
		return rejected(newError(KindUpgradeRequired, "upgrade %q", upgrade))
	}

	if c.cfg.Strict {
		if out, failed := c.checkStrict(req); failed {
			return out
		}
	}

	return c.negotiate(req)
}

func (c *Controller) checkStrict(req *Request) (Outcome, bool) {
	if conn := req.Get(wsnegotiate.HeaderConnection); !containsToken(conn, wsnegotiate.ConnectionUpgrade) {
		return rejected(newError(KindConnectionNotUpgrade, "connection %q", conn)), true
	}
	if version := req.Get(wsnegotiate.HeaderSecWebSocketVersion); version != wsnegotiate.SupportedVersion {
		return rejected(newError(KindUnsupportedVersion, "version %q", version),
			HeaderField{Name: wsnegotiate.HeaderSecWebSocketVersion, Value: wsnegotiate.SupportedVersion}), true
	}

	return Outcome{}, false
}

//nolint:nonamedreturns // The recover needs to replace the outcome.
func (c *Controller) negotiate(req *Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = rejected(newError(KindMissingKey, "handshake fault: %v", r))
		}
	}()

	var subprotocol, origin string
	if raw, ok := req.Lookup(wsnegotiate.HeaderSecWebSocketProtocol); ok {
		res := negotiate.Negotiate(raw, c.cfg.Subprotocols)
		if !res.Matched {
			return rejected(newError(KindSubProtocolRejected, "offered %q", raw))
		}
		subprotocol = res.Value
	}
	if raw, ok := req.Lookup(wsnegotiate.HeaderOrigin); ok {
		res := negotiate.Negotiate(raw, c.cfg.Origins)
		if !res.Matched {
			return rejected(newError(KindOriginRejected, "origin %q", raw))
		}
		origin = res.Value
	}

	key, ok := req.Lookup(wsnegotiate.HeaderSecWebSocketKey)
	if !ok {
		return rejected(newError(KindMissingKey, "header absent"))
	}
	if err := ValidateKey(key); err != nil {
		return rejected(newError(KindMissingKey, "%v", err))
	}
	accept := ComputeAccept(key)

	if !req.CanUpgrade && !c.cfg.Echo {
		return rejected(newError(KindUpgradeUnavailable, "transport cannot switch protocols"))
	}

	headers := []HeaderField{
		{Name: wsnegotiate.HeaderUpgrade, Value: wsnegotiate.UpgradeWebSocket},
		{Name: wsnegotiate.HeaderConnection, Value: wsnegotiate.ConnectionUpgrade},
		{Name: wsnegotiate.HeaderSecWebSocketAccept, Value: accept},
	}
	if subprotocol != "" {
		headers = append(headers, HeaderField{Name: wsnegotiate.HeaderSecWebSocketProtocol, Value: subprotocol})
	}

	out = Outcome{
		Kind:        Accepted,
		Status:      http.StatusSwitchingProtocols,
		Headers:     headers,
		Subprotocol: subprotocol,
		Origin:      origin,
		Accept:      accept,
	}
	if c.cfg.Echo {
		out.Echo = echo(req, subprotocol, origin, accept)
	}

	return out
}

// echo renders one line per request header, replacing negotiated values
// and turning the key into its accept token.
func echo(req *Request, subprotocol, origin, accept string) []string {
	lines := make([]string, 0, len(req.Header))
	for _, f := range req.Header {
		switch {
		case strings.EqualFold(f.Name, wsnegotiate.HeaderSecWebSocketProtocol):
			lines = append(lines, fmt.Sprintf("%v: %v", f.Name, subprotocol))
		case strings.EqualFold(f.Name, wsnegotiate.HeaderOrigin):
			lines = append(lines, fmt.Sprintf("%v: %v", f.Name, origin))
		case strings.EqualFold(f.Name, wsnegotiate.HeaderSecWebSocketKey):
			lines = append(lines, fmt.Sprintf("%v: %v", wsnegotiate.HeaderSecWebSocketAccept, accept))
		default:
			lines = append(lines, f.String())
		}
	}

	return lines
}

// containsToken matches a comma separated header list case-insensitively.
func containsToken(value, token string) bool {
	return httpguts.HeaderValuesContainsToken([]string{value}, token)
}
