package server

import (
	"log"

	"github.com/gofiber/contrib/websocket"

	"coursechat/internal/common"
	"coursechat/internal/event"
)

// ConnLike is the websocket surface the hub needs; satisfied by
// *websocket.Conn and by in-memory fakes in tests.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected participant.
type Client struct {
	ID      string
	User    common.User
	Conn    ConnLike
	Send    chan []byte
	channel string // current room, owned by the hub loop
}

func NewClient(id string, user common.User, conn ConnLike) *Client {
	return &Client{
		ID:   id,
		User: user,
		Conn: conn,
		Send: make(chan []byte, 64),
	}
}

// ReadPump decodes inbound frames and hands them to the hub. Blocks
// until the connection drops.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister <- c
	}()
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := event.Decode(data)
		if err != nil {
			log.Printf("server: dropping malformed frame from %s: %v", c.User.ID, err)
			continue
		}
		h.Inbound <- Inbound{Client: c, Env: env}
	}
}

// WritePump drains the send queue onto the wire.
func (c *Client) WritePump() {
	for data := range c.Send {
		_ = c.Conn.WriteMessage(websocket.TextMessage, data)
	}
	_ = c.Conn.Close()
}
