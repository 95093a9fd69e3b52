package protocol

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/net/http/httpguts"

	"github.com/luciancaetano/wsnegotiate"
	"github.com/luciancaetano/wsnegotiate/internal/handshake"
)

const (
	// MaxHandshakeHeaderBytes caps the request line plus headers of a handshake.
	MaxHandshakeHeaderBytes = 8192

	statusLineSwitching = "HTTP/1.1 101 Switching Protocols\r\n"
	crlf                = "\r\n"
)

var ErrInvalidHeader = errors.New("invalid header field")

// EncodeSwitchingProtocols encodes the 101 response for an accepted handshake.
func EncodeSwitchingProtocols(headers []handshake.HeaderField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(statusLineSwitching)
	if err := writeHeaders(&buf, headers); err != nil {
		return nil, err
	}
	buf.WriteString(crlf)

	return buf.Bytes(), nil
}

// EncodeRejection encodes a plain-text error response that closes the connection.
func EncodeRejection(status int, reason string, headers []handshake.HeaderField) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %03d %s\r\n", status, http.StatusText(status))
	all := make([]handshake.HeaderField, 0, len(headers)+3)
	all = append(all, headers...)
	all = append(all,
		handshake.HeaderField{Name: wsnegotiate.HeaderContentType, Value: wsnegotiate.ContentTypeText},
		handshake.HeaderField{Name: "Content-Length", Value: strconv.Itoa(len(reason))},
		handshake.HeaderField{Name: wsnegotiate.HeaderConnection, Value: "close"},
	)
	if err := writeHeaders(&buf, all); err != nil {
		return nil, err
	}
	buf.WriteString(crlf)
	buf.WriteString(reason)

	return buf.Bytes(), nil
}

// WriteOutcome writes the raw response for an accepted or rejected outcome.
func WriteOutcome(w io.Writer, out *handshake.Outcome) error {
	var (
		data []byte
		err  error
	)
	switch out.Kind {
	case handshake.Accepted:
		data, err = EncodeSwitchingProtocols(out.Headers)
	case handshake.Rejected:
		data, err = EncodeRejection(out.Status, out.Reason, out.Headers)
	default:
		return errors.Errorf("outcome %v has no raw encoding", out.Kind)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)

	return errors.Wrap(err, "failed to write handshake response")
}

func writeHeaders(buf *bytes.Buffer, headers []handshake.HeaderField) error {
	for _, f := range headers {
		if !httpguts.ValidHeaderFieldName(f.Name) || !httpguts.ValidHeaderFieldValue(f.Value) {
			return errors.Wrapf(ErrInvalidHeader, "header %q", f.Name)
		}
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString(crlf)
	}

	return nil
}
