package service

import (
	"context"
	"database/sql"
	"testing"

	"checkout-service/internal/mocks"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingOrder() *models.Order {
	return &models.Order{
		ID:     "ord-1",
		UserID: "u1",
		Status: models.OrderStatusPending,
		ShippingAddress: models.ShippingAddress{
			FullName: "Rahim",
			Email:    "snapshot@example.com",
		},
	}
}

func TestUpdateStatusPublishesCustomerEvent(t *testing.T) {
	st := new(mocks.MockOrderStore)
	st.On("GetOrderByID", mock.Anything, "ord-1").Return(pendingOrder(), nil)
	st.On("UpdateOrderStatus", mock.Anything, "ord-1", models.OrderStatusProcessing).Return(nil)
	st.On("FindUserByID", mock.Anything, "u1").Return(&models.User{
		ID:    "u1",
		Name:  sql.NullString{String: "Rahim Uddin", Valid: true},
		Email: sql.NullString{String: "rahim@example.com", Valid: true},
	}, nil)

	pub := new(mocks.MockPublisher)
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := NewOrderService(st, pub)
	order, err := svc.UpdateStatus(context.Background(), "ord-1", models.OrderStatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	event := pub.Calls[0].Arguments.Get(1).(*models.OrderStatusChangedEvent)
	assert.Equal(t, models.OrderStatusPending, event.FromStatus)
	assert.Equal(t, models.OrderStatusProcessing, event.ToStatus)
	assert.Equal(t, "Rahim Uddin", event.CustomerName)
	assert.Equal(t, "rahim@example.com", event.CustomerEmail)
}

func TestUpdateStatusFallsBackToShippingSnapshot(t *testing.T) {
	st := new(mocks.MockOrderStore)
	st.On("GetOrderByID", mock.Anything, "ord-1").Return(pendingOrder(), nil)
	st.On("UpdateOrderStatus", mock.Anything, "ord-1", models.OrderStatusCancelled).Return(nil)
	// Guest owner without a saved email.
	st.On("FindUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", IsGuest: true}, nil)

	pub := new(mocks.MockPublisher)
	pub.On("PublishOrderStatusChanged", mock.Anything, mock.Anything).Return(nil)

	svc := NewOrderService(st, pub)
	_, err := svc.UpdateStatus(context.Background(), "ord-1", models.OrderStatusCancelled)

	require.NoError(t, err)
	event := pub.Calls[0].Arguments.Get(1).(*models.OrderStatusChangedEvent)
	assert.Equal(t, "Rahim", event.CustomerName)
	assert.Equal(t, "snapshot@example.com", event.CustomerEmail)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	st := new(mocks.MockOrderStore)
	order := pendingOrder()
	order.Status = models.OrderStatusDelivered
	st.On("GetOrderByID", mock.Anything, "ord-1").Return(order, nil)

	pub := new(mocks.MockPublisher)
	svc := NewOrderService(st, pub)

	_, err := svc.UpdateStatus(context.Background(), "ord-1", models.OrderStatusCancelled)

	assert.ErrorIs(t, err, ErrInvalidTransition)
	st.AssertNotCalled(t, "UpdateOrderStatus")
	pub.AssertNotCalled(t, "PublishOrderStatusChanged")
}
