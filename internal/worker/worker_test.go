package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/mocks"
	"checkout-service/internal/models"
	"checkout-service/internal/notify"
	"checkout-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testWorker(mailer *mocks.MockMailer) *NotificationWorker {
	return &NotificationWorker{
		mailer:      mailer,
		maxAttempts: 3,
		backoff:     time.Millisecond,
		logger:      util.GetLogger(),
	}
}

func placedEvent(email string) *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
		},
		OrderID:       "ord-1",
		Total:         1060,
		Status:        models.OrderStatusPending,
		ItemCount:     1,
		CustomerName:  "Rahim",
		CustomerEmail: email,
	}
}

func statusEvent(email, to string) *models.OrderStatusChangedEvent {
	return &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeOrderStatusChanged,
		},
		OrderID:       "ord-1",
		FromStatus:    models.OrderStatusPending,
		ToStatus:      to,
		CustomerName:  "Rahim",
		CustomerEmail: email,
	}
}

func TestHandleOrderPlacedSendsEmail(t *testing.T) {
	mailer := new(mocks.MockMailer)
	mailer.On("SendOrderConfirmation", "rahim@example.com", "Rahim", mock.Anything).Return(nil).Once()

	w := testWorker(mailer)
	err := w.handleOrderPlaced(context.Background(), placedEvent("rahim@example.com"))

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestHandleOrderPlacedRetriesThenSucceeds(t *testing.T) {
	mailer := new(mocks.MockMailer)
	mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp timeout")).Twice()
	mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	w := testWorker(mailer)
	err := w.handleOrderPlaced(context.Background(), placedEvent("rahim@example.com"))

	assert.NoError(t, err)
	mailer.AssertNumberOfCalls(t, "SendOrderConfirmation", 3)
}

func TestHandleOrderPlacedGivesUpAfterMaxAttempts(t *testing.T) {
	mailer := new(mocks.MockMailer)
	mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))

	w := testWorker(mailer)
	// A permanently failing email must not surface an error, or the
	// message would never commit.
	err := w.handleOrderPlaced(context.Background(), placedEvent("rahim@example.com"))

	assert.NoError(t, err)
	mailer.AssertNumberOfCalls(t, "SendOrderConfirmation", 3)
}

func TestHandleOrderPlacedSkipsWithoutEmail(t *testing.T) {
	mailer := new(mocks.MockMailer)

	w := testWorker(mailer)
	err := w.handleOrderPlaced(context.Background(), placedEvent(""))

	assert.NoError(t, err)
	mailer.AssertNotCalled(t, "SendOrderConfirmation")
}

func TestHandleOrderStatusChangedSendsEmail(t *testing.T) {
	mailer := new(mocks.MockMailer)
	mailer.On("SendOrderStatusUpdate", "rahim@example.com", "Rahim",
		notify.StatusUpdate{OrderID: "ord-1", Status: models.OrderStatusShipped}).
		Return(nil).Once()

	w := testWorker(mailer)
	err := w.handleOrderStatusChanged(context.Background(),
		statusEvent("rahim@example.com", models.OrderStatusShipped))

	assert.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestHandleOrderStatusChangedRetries(t *testing.T) {
	mailer := new(mocks.MockMailer)
	mailer.On("SendOrderStatusUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp timeout")).Once()
	mailer.On("SendOrderStatusUpdate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	w := testWorker(mailer)
	err := w.handleOrderStatusChanged(context.Background(),
		statusEvent("rahim@example.com", models.OrderStatusDelivered))

	assert.NoError(t, err)
	mailer.AssertNumberOfCalls(t, "SendOrderStatusUpdate", 2)
}

func TestHandleOrderStatusChangedSkipsWithoutEmail(t *testing.T) {
	mailer := new(mocks.MockMailer)

	w := testWorker(mailer)
	err := w.handleOrderStatusChanged(context.Background(),
		statusEvent("", models.OrderStatusCancelled))

	assert.NoError(t, err)
	mailer.AssertNotCalled(t, "SendOrderStatusUpdate")
}
