package handshake

import (
	"net/http"
	"sort"
	"strings"
)

// HeaderField is a single header line.
type HeaderField struct {
	Name  string
	Value string
}

func (f HeaderField) String() string {
	return f.Name + ": " + f.Value
}

// Request is the parsed inbound request as delivered by the transport.
// The controller only reads it.
type Request struct {
	Method string
	Path   string
	// Header keeps the order the transport delivered. Names compare
	// case-insensitively.
	Header []HeaderField
	// CanUpgrade tells whether the transport is able to switch the
	// connection to another protocol after an accepted handshake.
	CanUpgrade bool
}

// Lookup returns the first value for name, matched case-insensitively.
func (r *Request) Lookup(name string) (string, bool) {
	for _, f := range r.Header {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}

	return "", false
}

// Get is Lookup without the presence flag.
func (r *Request) Get(name string) string {
	v, _ := r.Lookup(name)

	return v
}

// FromHTTP converts a net/http request. Header order is lost in net/http,
// so fields are ordered by canonical name; repeated lines are joined by ", ".
func FromHTTP(r *http.Request, canUpgrade bool) *Request {
	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]HeaderField, 0, len(names))
	for _, name := range names {
		fields = append(fields, HeaderField{Name: name, Value: strings.Join(r.Header[name], ", ")})
	}

	return &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     fields,
		CanUpgrade: canUpgrade,
	}
}
