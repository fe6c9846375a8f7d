package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Identity service events consumed by the stock service
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Stock events
	EventTransferRequested = "stock.transfer.requested"
	EventStockReconciled   = "stock.reconciled"
)

// Exchange names
const (
	ExchangeUserEvents  = "user.events"
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserEvent carries the full user snapshot for created and updated events.
type UserEvent struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Groups   []string `json:"groups"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// Stock Events

// TransferRecord is one submitted line of a transfer request.
type TransferRecord struct {
	TransferID  int64  `json:"transfer_id"`
	SKU         string `json:"sku"`
	Description string `json:"description"`
	RetailPrice string `json:"retail_price"`
	Quantity    int    `json:"quantity"`
}

// TransferRequestedEvent is published after a shop user submits reserved
// transfers. Deliver carries the notification flag as it was when the
// request was made.
type TransferRequestedEvent struct {
	UserID      string           `json:"user_id"`
	Username    string           `json:"username"`
	Email       string           `json:"email,omitempty"`
	Records     []TransferRecord `json:"records"`
	Deliver     bool             `json:"deliver"`
	RequestedAt time.Time        `json:"requested_at"`
}

// StockReconciledEvent is published after a committed spreadsheet upload.
type StockReconciledEvent struct {
	Username         string   `json:"username"`
	ProcessedCount   int      `json:"processed_count"`
	SkippedSKUs      []string `json:"skipped_skus"`
	ItemsCreated     int      `json:"items_created"`
	ItemsUpdated     int      `json:"items_updated"`
	ItemsDeactivated int      `json:"items_deactivated"`
	ShopItemsDeleted int      `json:"shop_items_deleted"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
