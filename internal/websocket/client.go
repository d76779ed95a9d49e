package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"grace-checkin-bot/internal/model"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// inboundFrame is what connected chat bridges send us. Plain text frames are
// accepted too and treated as direct-channel messages.
type inboundFrame struct {
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// readPump pumps chat messages from the websocket connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected close", map[string]interface{}{
					"user_id": c.UserID, "error": err.Error(),
				})
			}
			break
		}

		msg := parseInbound(c.UserID, raw)
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		c.Hub.dispatch(msg)
	}
}

func parseInbound(userID string, raw []byte) model.InboundMessage {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Text == "" {
		return model.InboundMessage{SenderID: userID, Channel: model.ChannelDirect, Text: string(raw)}
	}

	channel := model.ChannelDirect
	if frame.Channel == string(model.ChannelGroup) {
		channel = model.ChannelGroup
	}
	return model.InboundMessage{SenderID: userID, Channel: channel, Text: frame.Text}
}

// writePump pumps messages from the hub to the websocket connection.
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
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
