package handshake

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/luciancaetano/wsnegotiate"
)

// ErrorKind classifies a rejected handshake. Each kind maps to exactly one
// HTTP status and reason.
type ErrorKind uint8

const (
	KindMethodNotAllowed ErrorKind = iota + 1
	KindNotFound
	KindUpgradeRequired
	KindSubProtocolRejected
	KindOriginRejected
	KindMissingKey
	KindUnsupportedVersion
	KindConnectionNotUpgrade
	KindUpgradeUnavailable
)

var (
	ErrMethodNotAllowed     = errors.New("method not allowed")
	ErrNotFound             = errors.New("path not found")
	ErrUpgradeRequired      = errors.New("upgrade header is not websocket")
	ErrSubProtocolRejected  = errors.New("no acceptable sub-protocol")
	ErrOriginRejected       = errors.New("origin not allowed")
	ErrMissingKey           = errors.New("missing or malformed websocket key")
	ErrUnsupportedVersion   = errors.New("unsupported websocket version")
	ErrConnectionNotUpgrade = errors.New("connection header lacks upgrade token")
	ErrUpgradeUnavailable   = errors.New("connection cannot be upgraded")
)

type kindInfo struct {
	name     string
	status   int
	reason   string
	sentinel error
}

//nolint:gochecknoglobals // Immutable lookup table.
var kinds = map[ErrorKind]kindInfo{
	KindMethodNotAllowed:     {"MethodNotAllowed", http.StatusMethodNotAllowed, wsnegotiate.ReasonMethodNotAllowed, ErrMethodNotAllowed},
	KindNotFound:             {"NotFound", http.StatusNotFound, wsnegotiate.ReasonNotFound, ErrNotFound},
	KindUpgradeRequired:      {"UpgradeRequired", http.StatusNotAcceptable, wsnegotiate.ReasonUnacceptableUpgrade, ErrUpgradeRequired},
	KindSubProtocolRejected:  {"SubProtocolRejected", http.StatusBadRequest, wsnegotiate.ReasonNoSubprotocol, ErrSubProtocolRejected},
	KindOriginRejected:       {"OriginRejected", http.StatusForbidden, wsnegotiate.ReasonOriginNotAllowed, ErrOriginRejected},
	KindMissingKey:           {"MissingKey", http.StatusBadRequest, wsnegotiate.ReasonMissingKey, ErrMissingKey},
	KindUnsupportedVersion:   {"UnsupportedVersion", http.StatusUpgradeRequired, wsnegotiate.ReasonUnsupportedVersion, ErrUnsupportedVersion},
	KindConnectionNotUpgrade: {"ConnectionNotUpgrade", http.StatusBadRequest, wsnegotiate.ReasonConnectionNotUpgrade, ErrConnectionNotUpgrade},
	KindUpgradeUnavailable:   {"UpgradeUnavailable", http.StatusInternalServerError, wsnegotiate.ReasonUpgradeUnavailable, ErrUpgradeUnavailable},
}

func (k ErrorKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}

	return "Unknown"
}

// Status returns the HTTP status for the kind.
func (k ErrorKind) Status() int {
	return kinds[k].status
}

// Reason returns the plain-text response body for the kind.
func (k ErrorKind) Reason() string {
	return kinds[k].reason
}

// Error is a rejected handshake. It wraps the kind's sentinel, so
// errors.Is(err, ErrOriginRejected) works on it.
type Error struct {
	cause  error
	Reason string
	Status int
	Kind   ErrorKind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	info := kinds[kind]

	return &Error{
		Kind:   kind,
		Status: info.status,
		Reason: info.reason,
		cause:  errors.Wrapf(info.sentinel, format, args...),
	}
}

func (e *Error) Error() string {
	return e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// AsError extracts a handshake Error from err's chain.
func AsError(err error) *Error {
	var hErr *Error
	if errors.As(err, &hErr) {
		return hErr
	}

	return nil
}
