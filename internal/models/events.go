package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after the order and its items are
// committed. The notification worker consumes it to send the confirmation
// email, so it carries everything the email template needs.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Total         int64  `json:"total"`
	Status        string `json:"status"`
	ItemCount     int    `json:"item_count"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// OrderStatusChangedEvent is published when the admin order-management
// flow moves an order through its status machine. The notification worker
// consumes it to mail the customer, so it carries the recipient.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email,omitempty"`
}
