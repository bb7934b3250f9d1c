package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a storefront customer. Guests are created implicitly at
// checkout and carry only a phone number until the number is claimed by a
// real account.
type User struct {
	ID          string         `db:"id" json:"id"`
	Name        sql.NullString `db:"name" json:"name,omitempty"`
	Email       sql.NullString `db:"email" json:"email,omitempty"`
	PhoneNumber sql.NullString `db:"phone_number" json:"phone_number,omitempty"`
	Role        string         `db:"role" json:"role"`
	IsGuest     bool           `db:"is_guest" json:"is_guest"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ShippingAddress is the address exactly as submitted at checkout. It is
// persisted as a JSONB snapshot on the order, never normalized, so later
// edits to the buyer's saved addresses cannot change it.
type ShippingAddress struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	District    string `json:"district"`
	Thana       string `json:"thana"`
	Email       string `json:"email,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
}

// Value implements driver.Valuer for the JSONB column.
func (a ShippingAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the JSONB column.
func (a *ShippingAddress) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = ShippingAddress{}
		return nil
	default:
		return fmt.Errorf("unsupported shipping address type %T", src)
	}
}

// Order represents a placed order. PhoneNumber is the canonical checkout
// phone at order time, independent of the owning user's current phone.
type Order struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	PhoneNumber     string          `db:"phone_number" json:"phone_number"`
	Total           int64           `db:"total" json:"total"`
	Status          string          `db:"status" json:"status"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	ShippingAddress ShippingAddress `db:"shipping_address" json:"shipping_address"`
	StockFlagged    bool            `db:"stock_flagged" json:"stock_flagged"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is a line item with price and image snapshotted at order time.
type OrderItem struct {
	ID            int64          `db:"id" json:"id"`
	OrderID       string         `db:"order_id" json:"order_id"`
	ProductID     int64          `db:"product_id" json:"product_id"`
	Quantity      int            `db:"quantity" json:"quantity"`
	UnitPrice     int64          `db:"unit_price" json:"unit_price"`
	SelectedSize  sql.NullString `db:"selected_size" json:"selected_size,omitempty"`
	SelectedColor sql.NullString `db:"selected_color" json:"selected_color,omitempty"`
	ImageURL      sql.NullString `db:"image_url" json:"image_url,omitempty"`
}

// Product is owned by the catalog; checkout only reads it and decrements
// its stock quantity.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// PaymentMethodCOD is the only supported payment method.
const PaymentMethodCOD = "COD"

// statusRank orders the forward-only part of the status machine.
var statusRank = map[string]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// ValidStatusTransition reports whether an order may move from one status
// to another. Forward moves only, except cancellation, which is allowed
// from PENDING and PROCESSING.
func ValidStatusTransition(from, to string) bool {
	if to == OrderStatusCancelled {
		return from == OrderStatusPending || from == OrderStatusProcessing
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}
