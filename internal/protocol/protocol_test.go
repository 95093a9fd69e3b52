package protocol

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/wsnegotiate/internal/handshake"
)

// TestEncodeSwitchingProtocols tests the raw 101 response layout
func TestEncodeSwitchingProtocols(t *testing.T) {
	t.Parallel()

	data, err := EncodeSwitchingProtocols([]handshake.HeaderField{
		{Name: "Upgrade", Value: "websocket"},
		{Name: "Connection", Value: "Upgrade"},
		{Name: "Sec-WebSocket-Accept", Value: "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="},
	})
	require.NoError(t, err)

	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n" +
		"\r\n"
	assert.Equal(t, want, string(data))
}

// TestEncodeSwitchingProtocolsParses checks net/http can read the encoded response back
func TestEncodeSwitchingProtocolsParses(t *testing.T) {
	t.Parallel()

	data, err := EncodeSwitchingProtocols([]handshake.HeaderField{
		{Name: "Upgrade", Value: "websocket"},
		{Name: "Sec-WebSocket-Protocol", Value: "superchat"},
	})
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	assert.Equal(t, "superchat", resp.Header.Get("Sec-WebSocket-Protocol"))
}

// TestEncodeRejection tests the raw error response
func TestEncodeRejection(t *testing.T) {
	t.Parallel()

	data, err := EncodeRejection(http.StatusForbidden, "Origin not allowed", nil)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Origin not allowed", string(body))
	assert.True(t, resp.Close)
}

// TestEncodeRejectsHeaderInjection tests that malformed header fields are refused
func TestEncodeRejectsHeaderInjection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header handshake.HeaderField
	}{
		{name: "value with CRLF", header: handshake.HeaderField{Name: "Sec-WebSocket-Protocol", Value: "chat\r\nX-Evil: 1"}},
		{name: "value with LF", header: handshake.HeaderField{Name: "Sec-WebSocket-Protocol", Value: "chat\nx"}},
		{name: "name with CR", header: handshake.HeaderField{Name: "X\r", Value: "v"}},
		{name: "name with space", header: handshake.HeaderField{Name: "X Evil", Value: "v"}},
		{name: "empty name", header: handshake.HeaderField{Name: "", Value: "v"}},
		{name: "value with NUL", header: handshake.HeaderField{Name: "X-Test", Value: "a\x00b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := EncodeSwitchingProtocols([]handshake.HeaderField{tt.header})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidHeader))

			_, err = EncodeRejection(http.StatusBadRequest, "bad", []handshake.HeaderField{tt.header})
			require.Error(t, err)
		})
	}
}

// TestWriteOutcome tests writing accepted, rejected and static outcomes
func TestWriteOutcome(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	accepted := handshake.Outcome{Kind: handshake.Accepted, Headers: []handshake.HeaderField{{Name: "Upgrade", Value: "websocket"}}}
	require.NoError(t, WriteOutcome(&buf, &accepted))
	assert.Contains(t, buf.String(), "101 Switching Protocols")

	buf.Reset()
	rejected := handshake.Outcome{Kind: handshake.Rejected, Status: http.StatusBadRequest, Reason: "No acceptable sub-protocol"}
	require.NoError(t, WriteOutcome(&buf, &rejected))
	assert.Contains(t, buf.String(), "400 Bad Request")
	assert.Contains(t, buf.String(), "No acceptable sub-protocol")

	static := handshake.Outcome{Kind: handshake.Static}
	assert.Error(t, WriteOutcome(&buf, &static))
}
