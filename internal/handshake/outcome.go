package handshake

import (
	"net/http"
	"strings"
)

// OutcomeKind tags an Outcome.
type OutcomeKind uint8

const (
	// Accepted means the connection may switch to the WebSocket protocol.
	Accepted OutcomeKind = iota + 1
	// Rejected means the request must be answered with Status and Reason.
	Rejected
	// Static means the path is a recognized non-handshake route. The
	// transport serves it; the negotiator took no decision.
	Static
)

func (k OutcomeKind) String() string {
	switch k {
	case Accepted:
		return "Accepted"
	case Rejected:
		return "Rejected"
	case Static:
		return "Static"
	default:
		return "Unknown"
	}
}

// Outcome is the single result produced for one request.
type Outcome struct {
	// Err is set for Rejected outcomes.
	Err *Error
	// Reason is the plain-text body for Rejected outcomes.
	Reason      string
	Subprotocol string
	Origin      string
	Accept      string
	// Headers are the response headers, in order. For Accepted they always
	// start with Upgrade, Connection and Sec-WebSocket-Accept.
	Headers []HeaderField
	// Echo holds the diagnostic header lines when echo mode is on.
	Echo   []string
	Status int
	Kind   OutcomeKind
}

func rejected(err *Error, headers ...HeaderField) Outcome {
	return Outcome{
		Kind:    Rejected,
		Status:  err.Status,
		Reason:  err.Reason,
		Err:     err,
		Headers: headers,
	}
}

func static() Outcome {
	return Outcome{Kind: Static, Status: http.StatusOK}
}

// IsAccepted reports whether the handshake was accepted.
func (o *Outcome) IsAccepted() bool {
	return o.Kind == Accepted
}

// Header returns the first response header value for name.
func (o *Outcome) Header(name string) string {
	for _, f := range o.Headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}

	return ""
}

// EchoBody joins the echo lines the way the diagnostic response renders them.
func (o *Outcome) EchoBody() string {
	return strings.Join(o.Echo, "\n")
}
