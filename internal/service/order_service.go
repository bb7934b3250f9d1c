package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when an admin status update would move
// an order backwards or cancel it after processing has finished.
var ErrInvalidTransition = errors.New("invalid order status transition")

// OrderStore is the persistence surface the order service needs.
// *store.Store implements it.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// OrderService serves order reads and the admin status machine. Order
// creation lives in CheckoutService.
type OrderService struct {
	store     OrderStore
	publisher OrderStatusPublisher
	logger    *zap.Logger
}

// OrderStatusPublisher emits status change events for downstream
// consumers.
type OrderStatusPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

func NewOrderService(store OrderStore, publisher OrderStatusPublisher) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// GetOrder retrieves an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetUserOrders retrieves a user's orders, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// UpdateStatus moves an order through the status machine: forward only,
// cancellation allowed from PENDING and PROCESSING.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.ValidStatusTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	name, email := s.customerContact(ctx, order)
	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:       orderID,
		FromStatus:    order.Status,
		ToStatus:      status,
		CustomerName:  name,
		CustomerEmail: email,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event",
			zap.String("order_id", orderID),
			zap.Error(err))
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", status))

	order.Status = status
	return order, nil
}

// customerContact resolves who to notify about an order: the owning
// user's saved contact first, the shipping snapshot as fallback.
func (s *OrderService) customerContact(ctx context.Context, order *models.Order) (name, email string) {
	name = order.ShippingAddress.FullName
	email = order.ShippingAddress.Email

	user, err := s.store.FindUserByID(ctx, order.UserID)
	if err != nil {
		s.logger.Warn("Failed to look up order owner for notification",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return name, email
	}
	if user != nil {
		if user.Name.Valid {
			name = user.Name.String
		}
		if user.Email.Valid {
			email = user.Email.String
		}
	}
	return name, email
}
