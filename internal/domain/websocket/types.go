// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Channel management (client -> server)
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"

	// Vendor dashboard events (server -> client)
	EventTypeProspectCreated       EventType = "prospect:created"
	EventTypeProspectQualified     EventType = "prospect:qualified"
	EventTypePurchaseCompleted     EventType = "purchase:completed"
	EventTypeSubscriptionCancelled EventType = "subscription:cancelled"
	EventTypeBillingUpdated        EventType = "billing:updated"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType groups dashboard events a client can opt into
type ChannelType string

const (
	ChannelProspects ChannelType = "prospects"
	ChannelSales     ChannelType = "sales"
	ChannelBilling   ChannelType = "billing"
)

// ChannelFor returns the channel an event is delivered on.
func ChannelFor(t EventType) ChannelType {
	switch t {
	case EventTypeProspectCreated, EventTypeProspectQualified:
		return ChannelProspects
	case EventTypeBillingUpdated:
		return ChannelBilling
	}
	return ChannelSales
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ProspectData is pushed when a lead arrives or is qualified
type ProspectData struct {
	ProspectID string `json:"prospect_id"`
	TierID     string `json:"tier_id,omitempty"`
	Name       string `json:"name"`
	Company    string `json:"company,omitempty"`
	Status     string `json:"status"`
}

// PurchaseData is pushed for new subscriptions, charges and cancellations
type PurchaseData struct {
	Kind        string     `json:"kind"`
	RecordID    string     `json:"record_id"`
	TierID      string     `json:"tier_id"`
	BuyerID     string     `json:"buyer_id"`
	Amount      int64      `json:"amount,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Display     string     `json:"display,omitempty"`
	ActiveUntil *time.Time `json:"active_until,omitempty"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
