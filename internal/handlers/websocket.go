package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fleetlens/camera-signaling/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Keep-alive and buffer constants for the signaling channel.
const (
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

// Role is the registration state of a connection. A connection registers at
// most one role at a time; re-registration overwrites.
type Role int

const (
	RoleUnregistered Role = iota
	RoleBroadcaster
	RoleViewer
)

// Client represents one WebSocket signaling connection. Role, DeviceID,
// DeviceName and ViewerID are only mutated from the connection's own read
// pump.
type Client struct {
	ID         string
	Role       Role
	DeviceID   string
	DeviceName string
	ViewerID   string
	Conn       *websocket.Conn
	Send       chan []byte
}

// HandleSignaling upgrades the HTTP request to a WebSocket connection and
// hands it to the gateway.
func HandleSignaling(gw *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := &Client{
			ID:   uuid.New().String(),
			Conn: conn,
			Send: make(chan []byte, sendBufferSize),
		}

		gw.addClient(client)
		log.Printf("Connection %s opened from %s", client.ID, conn.RemoteAddr())

		go client.writePump()
		go client.readPump(gw)
	}
}

func (c *Client) readPump(gw *Gateway) {
	defer func() {
		gw.removeClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg models.SignalMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Failed to parse message from %s: %v", c.ID, err)
			c.sendError(models.ErrCodeInvalidPayload, "message is not valid JSON")
			continue
		}

		gw.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(msg models.SignalMessage) {
	c.send(msg)
}

// send marshals an outbound frame onto the send channel. Non-blocking: a
// full buffer drops the frame.
func (c *Client) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.Send <- data:
	default:
		log.Printf("Failed to send message to connection %s, buffer full", c.ID)
	}
}

func (c *Client) sendError(code, detail string) {
	c.sendMessage(models.SignalMessage{
		Type:  models.SignalTypeError,
		Code:  code,
		Error: detail,
	})
}
