package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/season-tracker/internal/domain"
)

// Message types
const (
	MessageTypeTeamUpdate    = "team_update"
	MessageTypeProfileUpdate = "profile_update"
	MessageTypeSubscribe     = "subscribe"
	MessageTypeUnsubscribe   = "unsubscribe"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
)

// Topics
const (
	TopicTeams         = "teams"
	topicProfilePrefix = "profile:"
)

// ProfileTopic is the topic carrying one identity's profile changes
func ProfileTopic(identityID string) string {
	return topicProfilePrefix + identityID
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// clients by topic
	clients map[string]map[*Client]bool

	allClients map[*Client]bool

	// last record of each team, replayed to new team subscribers
	teams map[domain.Side]domain.TeamRecord

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		teams:       make(map[domain.Side]domain.TeamRecord),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id, "identity_id", client.identityID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for topic, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, topic)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.clients[req.topic]; !ok {
					h.clients[req.topic] = make(map[*Client]bool)
				}
				h.clients[req.topic][req.client] = true
				if req.topic == TopicTeams {
					h.replayTeams(req.client)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "topic", req.topic)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.topic]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.topic)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "topic", req.topic)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// replayTeams sends the cached team records to one client. Caller holds mu.
func (h *Hub) replayTeams(client *Client) {
	for _, side := range domain.Sides {
		rec, ok := h.teams[side]
		if !ok {
			continue
		}
		data, err := json.Marshal(teamMessage(rec))
		if err != nil {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// broadcastMessage sends a message to the clients subscribed to its topic
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	for client := range h.clients[message.Topic] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message", "topic", message.Topic)
	}
}

func teamMessage(rec domain.TeamRecord) *Message {
	return &Message{
		Type:      MessageTypeTeamUpdate,
		Topic:     TopicTeams,
		Data:      rec,
		Timestamp: time.Now(),
	}
}

// TeamChanged caches a team record and broadcasts it on the teams topic
func (h *Hub) TeamChanged(rec domain.TeamRecord) {
	h.mu.Lock()
	h.teams[rec.Side] = rec
	h.mu.Unlock()
	h.enqueue(teamMessage(rec))
}

// ProfileChanged broadcasts a committed profile to its owner's topic
func (h *Hub) ProfileChanged(p *domain.UserProfile) {
	if p == nil || p.IdentityID == "" {
		return
	}
	h.enqueue(&Message{
		Type:      MessageTypeProfileUpdate,
		Topic:     ProfileTopic(p.IdentityID),
		Data:      *p,
		Timestamp: time.Now(),
	})
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.ctx.Done():
	}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.ctx.Done():
	}
}

// allowed reports whether identityID may subscribe to topic. Profile topics
// are private to their owner.
func allowed(identityID, topic string) bool {
	if topic == TopicTeams {
		return true
	}
	if owner, ok := strings.CutPrefix(topic, topicProfilePrefix); ok {
		return owner != "" && owner == identityID
	}
	return false
}

// GetSubscriberCount returns the number of subscribers for a topic
func (h *Hub) GetSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
