package worker

import (
	"context"
	"time"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/notify"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes OrderPlaced events and sends confirmation
// emails. Delivery runs outside the request path with its own retry
// policy; after the final failed attempt the event is dropped and only a
// metric and log line remain.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	mailer       notify.Mailer
	maxAttempts  int
	backoff      time.Duration
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, mailer notify.Mailer) *NotificationWorker {
	w := &NotificationWorker{
		consumer:    consumer,
		mailer:      mailer,
		maxAttempts: 3,
		backoff:     2 * time.Second,
		logger:      util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// handleOrderPlaced sends the confirmation email with bounded retries.
// Always returns nil so the message commits: a permanently failing email
// must not wedge the consumer.
func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if event.CustomerEmail == "" {
		w.logger.Info("No email on order, skipping confirmation",
			zap.String("order_id", event.OrderID))
		return nil
	}

	summary := notify.OrderSummary{
		OrderID:   event.OrderID,
		Total:     event.Total,
		Status:    event.Status,
		ItemCount: event.ItemCount,
	}

	w.sendWithRetry(ctx, event.OrderID, func() error {
		return w.mailer.SendOrderConfirmation(event.CustomerEmail, event.CustomerName, summary)
	})
	return nil
}

// handleOrderStatusChanged mails the customer about a status transition,
// with the same bounded-retry policy as the confirmation email.
func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	if event.CustomerEmail == "" {
		w.logger.Info("No email on order, skipping status update",
			zap.String("order_id", event.OrderID))
		return nil
	}

	update := notify.StatusUpdate{
		OrderID: event.OrderID,
		Status:  event.ToStatus,
	}

	w.sendWithRetry(ctx, event.OrderID, func() error {
		return w.mailer.SendOrderStatusUpdate(event.CustomerEmail, event.CustomerName, update)
	})
	return nil
}

// sendWithRetry attempts a send up to maxAttempts times with linear
// backoff, counting the outcome. It never reports failure upward.
func (w *NotificationWorker) sendWithRetry(ctx context.Context, orderID string, send func() error) {
	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		err = send()
		if err == nil {
			util.NotificationsSentTotal.Inc()
			return
		}

		w.logger.Warn("Notification email attempt failed",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < w.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
		}
	}

	util.NotificationsFailedTotal.Inc()
	w.logger.Error("Giving up on notification email",
		zap.String("order_id", orderID),
		zap.Error(err))
}
