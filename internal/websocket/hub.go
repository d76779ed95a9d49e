package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"grace-checkin-bot/internal/model"
	"grace-checkin-bot/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const relayChannel = "grace_gateway_events"

// InboundHandler receives every chat message read off a websocket connection.
type InboundHandler func(msg model.InboundMessage)

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance delivery, optional
	rdb *redis.Client

	// Inbound messages are forwarded here, set once during wiring
	inbound InboundHandler

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

// SetInboundHandler wires the routing callback. Must be called before any
// client connects.
func (h *Hub) SetInboundHandler(handler InboundHandler) {
	h.inbound = handler
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendText delivers a bot reply to every device the user has connected, and
// relays it through redis so other instances can do the same.
func (h *Hub) SendText(userID string, text string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "message",
		"data": model.OutboundMessage{UserID: userID, Text: text},
	})

	h.mu.RLock()
	clients, localFound := h.clients[userID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_user_id": userID,
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), relayChannel, payload)
	}
}

// dispatch hands an inbound message to the router on its own goroutine so a
// long-running turn never stalls the connection's read loop.
func (h *Hub) dispatch(msg model.InboundMessage) {
	if h.inbound == nil {
		h.logger.Warn("Hub", "Inbound message dropped, no handler wired", map[string]interface{}{"user_id": msg.SenderID})
		return
	}
	go h.inbound(msg)
}

func (h *Hub) subscribeToRedis() {
	// Every instance subscribes to the same relay channel and delivers only
	// to users it holds locally.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Error("Hub", "Redis relay parse error", map[string]interface{}{"error": err.Error()})
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[payload.TargetUserID]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}
