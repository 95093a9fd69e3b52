package websocket

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeSession(t *testing.T, parent context.Context, r *bufio.Reader) (*Session, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() { _ = remote.Close() })

	return newSession(parent, local, r, "192.0.2.1:1234", "chat", "https://example.com"), remote
}

// TestSessionID tests that each session has a unique UUID
func TestSessionID(t *testing.T) {
	t.Parallel()

	ids := make(map[string]bool)
	for range 50 {
		session, _ := pipeSession(t, context.Background(), nil)
		_, err := uuid.Parse(session.ID())
		require.NoError(t, err)
		assert.False(t, ids[session.ID()], "duplicate ID %s", session.ID())
		ids[session.ID()] = true
	}
}

// TestSessionAccessors tests the negotiated values exposed by a session
func TestSessionAccessors(t *testing.T) {
	t.Parallel()

	session, _ := pipeSession(t, context.Background(), nil)
	assert.Equal(t, "192.0.2.1:1234", session.RemoteAddr())
	assert.Equal(t, "chat", session.Subprotocol())
	assert.Equal(t, "https://example.com", session.Origin())
	assert.True(t, session.IsAlive())
	require.NoError(t, session.Context().Err())
}

// TestSessionClose tests that closing is idempotent and cancels the context
func TestSessionClose(t *testing.T) {
	t.Parallel()

	session, remote := pipeSession(t, context.Background(), nil)

	require.NoError(t, session.Close(context.Background()))
	require.NoError(t, session.Close(context.Background()))
	assert.False(t, session.IsAlive())
	require.ErrorIs(t, session.Context().Err(), context.Canceled)

	_, err := remote.Read(make([]byte, 1))
	require.Error(t, err)
}

// TestSessionParentCancellation tests that the server context bounds the session
func TestSessionParentCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(context.Background())
	session, _ := pipeSession(t, parent, nil)

	cancel()
	<-session.Context().Done()
	assert.True(t, session.IsAlive())
	require.NoError(t, session.Close(context.Background()))
}

// TestSessionBufferedBytes tests that bytes read ahead of the hijack are not lost
func TestSessionBufferedBytes(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(strings.NewReader("early"))
	_, err := r.Peek(1)
	require.NoError(t, err)

	session, _ := pipeSession(t, context.Background(), r)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	buf := make([]byte, 5)
	n, err := session.Conn().Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "early", string(buf[:n]))
}

// TestSessionConcurrentClose tests closing from many goroutines at once
func TestSessionConcurrentClose(t *testing.T) {
	t.Parallel()

	session, _ := pipeSession(t, context.Background(), nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, session.Close(context.Background()))
			_ = session.IsAlive()
		}()
	}
	wg.Wait()
	assert.False(t, session.IsAlive())
}
