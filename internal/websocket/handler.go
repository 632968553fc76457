package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs wires an upgraded connection into the hub. onReady runs once
// the client is registered, before the read loop; handlers use it to push
// the initial snapshots.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, onReady func()) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	if onReady != nil {
		onReady()
	}
	client.readPump() // runs in the handler goroutine
}
