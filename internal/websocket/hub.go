// internal/websocket/hub.go
package websocket

import (
	"context"
	"fmt"
	"sync"

	wstypes "gitwallet-service/internal/domain/websocket"
	"gitwallet-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Hub fans dashboard events out to the connected clients of an organization.
type Hub struct {
	// Registered clients by organization ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	jwtVerifier *jwt.Verifier
	logger      *zap.Logger
}

type BroadcastMessage struct {
	OrganizationID string
	Channel        wstypes.ChannelType
	Message        *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		Register:    make(chan *Client),
		unregister:  make(chan *Client, 16),
		broadcast:   make(chan *BroadcastMessage, 256),
		done:        make(chan struct{}),
		jwtVerifier: jwtVerifier,
		logger:      logger,
	}
}

// AuthenticateClient validates the access token of a vendor dashboard.
func (h *Hub) AuthenticateClient(token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.OrganizationID == "" {
		return nil, ErrNoOrganization
	}

	return &ClientAuth{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		SessionID:      claims.ID,
		Roles:          claims.Roles,
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.organizationID] == nil {
		h.clients[client.organizationID] = make(map[*Client]bool)
	}
	h.clients[client.organizationID][client] = true

	h.logger.Info("dashboard client connected",
		zap.String("organization_id", client.organizationID),
		zap.String("user_id", client.userID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":         client.userID,
		"organization_id": client.organizationID,
		"session_id":      client.sessionID,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.organizationID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.organizationID)
			}

			h.logger.Info("dashboard client disconnected",
				zap.String("organization_id", client.organizationID),
				zap.String("user_id", client.userID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[msg.OrganizationID] {
		if client.IsSubscribed(msg.Channel) {
			client.SendMessage(msg.Message)
		}
	}
}

// PublishToOrganization queues an event for an organization's dashboards.
// It never blocks; events are dropped when the queue is full.
func (h *Hub) PublishToOrganization(organizationID string, eventType wstypes.EventType, data interface{}) {
	msg := &BroadcastMessage{
		OrganizationID: organizationID,
		Channel:        wstypes.ChannelFor(eventType),
		Message:        wstypes.NewMessage(eventType, data),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("dashboard broadcast queue full, dropping event",
			zap.String("organization_id", organizationID),
			zap.String("event", string(eventType)),
		)
	}
}

func (h *Hub) ConnectedClients(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[organizationID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
