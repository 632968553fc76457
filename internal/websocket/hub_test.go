package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func TestSendDropsSlowClientWithoutPanic(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	go hub.Run()

	userID := uuid.New()
	client := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 1)}

	hub.register <- client
	require.Eventually(t, func() bool { return hub.HasClients(userID) },
		time.Second, 5*time.Millisecond)

	// Fill the buffer so the next push takes the overflow branch, which
	// unregisters the client. The unregister handler is the only place
	// Send gets closed; a second close here would panic the hub.
	client.Send <- []byte("stale")
	hub.Send(userID, Envelope{Type: "chat_list", Data: nil})

	require.Eventually(t, func() bool { return !hub.HasClients(userID) },
		time.Second, 5*time.Millisecond)

	// The channel is closed exactly once and drains cleanly.
	<-client.Send
	_, open := <-client.Send
	assert.False(t, open)

	// Further pushes for the departed user are a no-op.
	hub.Send(userID, Envelope{Type: "chat_list", Data: nil})
}
