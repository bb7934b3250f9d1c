package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"

	"github.com/google/uuid"
)

// CreateOrderWithItems persists an order and all of its line items in a
// single transaction. The order ID is assigned here. Nothing is written
// when any insert fails.
func (s *Store) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	order.ID = uuid.New().String()

	query := `
		INSERT INTO orders (id, user_id, phone_number, total, status, payment_method, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, query,
		order.ID, order.UserID, order.PhoneNumber, order.Total,
		order.Status, order.PaymentMethod, order.ShippingAddress,
	).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, selected_size, selected_color, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].UnitPrice,
			items[i].SelectedSize, items[i].SelectedColor, items[i].ImageURL); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// CountPendingOrdersByPhone counts PENDING orders snapshotted under a
// canonical phone number.
func (s *Store) CountPendingOrdersByPhone(ctx context.Context, phone string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE phone_number = $1 AND status = $2",
		phone, models.OrderStatusPending)
	return count, err
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// FlagOrderStockIssue marks an order whose inventory decrement did not
// fully apply, so it shows up for manual reconciliation.
func (s *Store) FlagOrderStockIssue(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET stock_flagged = TRUE, updated_at = NOW() WHERE id = $1",
		orderID)
	return err
}
