package handshake

import (
	"crypto/sha1" //nolint:gosec // Mandated by RFC 6455, not used for security.
	"encoding/base64"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/luciancaetano/wsnegotiate"
)

// keyNonceSize is the decoded length of a valid Sec-WebSocket-Key.
const keyNonceSize = 16

var (
	ErrKeyEmpty     = errors.New("key is empty")
	ErrKeyNotUTF8   = errors.New("key is not valid utf-8")
	ErrKeyNotBase64 = errors.New("key is not base64")
	ErrKeyLength    = errors.New("key does not decode to a 16-byte nonce")
)

// ComputeAccept derives the Sec-WebSocket-Accept token: the base64 SHA-1
// digest of key followed by the fixed GUID.
func ComputeAccept(key string) string {
	sum := sha1.Sum([]byte(key + wsnegotiate.WebSocketGUID)) //nolint:gosec // See import.

	return base64.StdEncoding.EncodeToString(sum[:])
}

// ValidateKey checks the client key is a base64 encoded 16-byte nonce.
func ValidateKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if !utf8.ValidString(key) {
		return ErrKeyNotUTF8
	}
	nonce, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return errors.Wrap(ErrKeyNotBase64, err.Error())
	}
	if len(nonce) != keyNonceSize {
		return errors.Wrapf(ErrKeyLength, "got %d bytes", len(nonce))
	}

	return nil
}
