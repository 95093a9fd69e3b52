package wsnegotiate_test

import (
	"testing"

	"github.com/luciancaetano/wsnegotiate"
)

// TestConstants verifies that all constants are defined with expected values
func TestConstants(t *testing.T) {
	t.Parallel()

	t.Run("protocol values", func(t *testing.T) {
		t.Parallel()

		// RFC 6455 §1.3
		if wsnegotiate.WebSocketGUID != "258EAFA5-E914-47DA-95CA-C5AB0DC85B11" {
			t.Errorf("WebSocketGUID = %v", wsnegotiate.WebSocketGUID)
		}

		if wsnegotiate.SupportedVersion != "13" {
			t.Errorf("SupportedVersion = %v, want 13", wsnegotiate.SupportedVersion)
		}

		if wsnegotiate.UpgradeWebSocket != "websocket" {
			t.Errorf("UpgradeWebSocket = %v, want websocket", wsnegotiate.UpgradeWebSocket)
		}
	})

	t.Run("routes", func(t *testing.T) {
		t.Parallel()

		if wsnegotiate.DefaultPath == wsnegotiate.DefaultStaticPath {
			t.Error("DefaultPath and DefaultStaticPath should be different")
		}

		if wsnegotiate.DefaultStaticBody != "Try to request "+wsnegotiate.DefaultPath {
			t.Errorf("DefaultStaticBody = %q", wsnegotiate.DefaultStaticBody)
		}
	})

	t.Run("reasons", func(t *testing.T) {
		t.Parallel()

		// Verify reasons are non-empty and distinct
		reasons := []struct {
			name  string
			value string
		}{
			{"ReasonMethodNotAllowed", wsnegotiate.ReasonMethodNotAllowed},
			{"ReasonNotFound", wsnegotiate.ReasonNotFound},
			{"ReasonUnacceptableUpgrade", wsnegotiate.ReasonUnacceptableUpgrade},
			{"ReasonNoSubprotocol", wsnegotiate.ReasonNoSubprotocol},
			{"ReasonOriginNotAllowed", wsnegotiate.ReasonOriginNotAllowed},
			{"ReasonMissingKey", wsnegotiate.ReasonMissingKey},
			{"ReasonUnsupportedVersion", wsnegotiate.ReasonUnsupportedVersion},
			{"ReasonConnectionNotUpgrade", wsnegotiate.ReasonConnectionNotUpgrade},
			{"ReasonUpgradeUnavailable", wsnegotiate.ReasonUpgradeUnavailable},
			{"ReasonTooManyRequests", wsnegotiate.ReasonTooManyRequests},
			{"ReasonInternalError", wsnegotiate.ReasonInternalError},
		}

		seen := make(map[string]string, len(reasons))
		for _, r := range reasons {
			if r.value == "" {
				t.Errorf("%s should not be empty", r.name)
			}
			if other, ok := seen[r.value]; ok {
				t.Errorf("%s duplicates %s", r.name, other)
			}
			seen[r.value] = r.name
		}
	})

	t.Run("error messages", func(t *testing.T) {
		t.Parallel()

		for name, value := range map[string]string{
			"ErrServerAlreadyRunning": wsnegotiate.ErrServerAlreadyRunning,
			"ErrSessionClosed":        wsnegotiate.ErrSessionClosed,
			"ErrHijackFailed":         wsnegotiate.ErrHijackFailed,
		} {
			if value == "" {
				t.Errorf("%s should not be empty", name)
			}
		}
	})
}
