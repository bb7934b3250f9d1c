// Package notify sends transactional order emails. Delivery is always
// best-effort: a failed or skipped send never affects the order that
// triggered it.
package notify

import (
	"fmt"

	"checkout-service/config"
	"checkout-service/internal/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// OrderSummary carries the fields the confirmation template renders.
type OrderSummary struct {
	OrderID   string
	Total     int64
	Status    string
	ItemCount int
}

// StatusUpdate carries the fields the status-update template renders.
type StatusUpdate struct {
	OrderID string
	Status  string
}

// Mailer sends transactional order emails.
type Mailer interface {
	SendOrderConfirmation(email, name string, summary OrderSummary) error
	SendOrderStatusUpdate(email, name string, update StatusUpdate) error
}

// SMTPMailer delivers over SMTP via gomail. When SMTP is not configured
// it no-ops with a log line instead of erroring, so deployments without
// credentials still work.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{
		from:   cfg.From,
		logger: util.GetLogger(),
	}
	if cfg.Host != "" && cfg.User != "" && cfg.Password != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	} else {
		m.logger.Warn("SMTP not configured, order confirmation emails will be skipped")
	}
	return m
}

// SendOrderConfirmation renders and sends the confirmation email.
func (m *SMTPMailer) SendOrderConfirmation(email, name string, summary OrderSummary) error {
	if m.dialer == nil {
		m.logger.Info("Skipping order confirmation email, SMTP not configured",
			zap.String("order_id", summary.OrderID))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("Zest Wear <%s>", m.from))
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Order placed successfully - Zest Wear")
	msg.SetBody("text/html", renderOrderConfirmation(name, summary))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	m.logger.Info("Order confirmation email sent",
		zap.String("order_id", summary.OrderID),
		zap.String("to", email))
	return nil
}

// SendOrderStatusUpdate notifies the customer that their order moved to a
// new status.
func (m *SMTPMailer) SendOrderStatusUpdate(email, name string, update StatusUpdate) error {
	if m.dialer == nil {
		m.logger.Info("Skipping status update email, SMTP not configured",
			zap.String("order_id", update.OrderID))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("Zest Wear <%s>", m.from))
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("Order Status Update - %s - Zest Wear", update.Status))
	msg.SetBody("text/html", renderStatusUpdate(name, update))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send status update email: %w", err)
	}

	m.logger.Info("Order status update email sent",
		zap.String("order_id", update.OrderID),
		zap.String("status", update.Status),
		zap.String("to", email))
	return nil
}

func renderOrderConfirmation(name string, s OrderSummary) string {
	if name == "" {
		name = "Valued Customer"
	}

	// Show only the tail of the order id, matching the storefront's
	// short order references.
	shortID := s.OrderID
	if len(shortID) > 6 {
		shortID = shortID[len(shortID)-6:]
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2 style="color: #2c3e50;">Order placed successfully</h2>
      <p>Dear %s,</p>
      <p>Your order has been placed and will be delivered with cash on delivery.</p>
      <div style="background-color: #f4f4f4; padding: 15px; border-radius: 5px; margin: 20px 0;">
        <h3 style="margin-top: 0;">Order Details:</h3>
        <p><strong>Order ID:</strong> #%s</p>
        <p><strong>Items:</strong> %d</p>
        <p><strong>Total:</strong> %d BDT</p>
        <p><strong>Status:</strong> %s</p>
      </div>
      <p>Thank you for shopping with Zest Wear!</p>
      <p>Best regards,<br>Zest Wear Team</p>
    </div>
  </body>
</html>`, name, shortID, s.ItemCount, s.Total, s.Status)
}

var statusMessages = map[string]string{
	"PROCESSING": "Your order is being processed.",
	"SHIPPED":    "Your order has been shipped!",
	"DELIVERED":  "Your order has been delivered using our fast delivery.",
	"CANCELLED":  "Your order has been cancelled.",
}

func renderStatusUpdate(name string, u StatusUpdate) string {
	if name == "" {
		name = "Valued Customer"
	}

	message, ok := statusMessages[u.Status]
	if !ok {
		message = "Your order status has been updated."
	}

	shortID := u.OrderID
	if len(shortID) > 6 {
		shortID = shortID[len(shortID)-6:]
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2 style="color: #2c3e50;">Order Status Update</h2>
      <p>Dear %s,</p>
      <p>%s</p>
      <div style="background-color: #f4f4f4; padding: 15px; border-radius: 5px; margin: 20px 0;">
        <p><strong>Order ID:</strong> #%s</p>
        <p><strong>Status:</strong> %s</p>
      </div>
      <p>Thank you for shopping with Zest Wear!</p>
      <p>Best regards,<br>Zest Wear Team</p>
    </div>
  </body>
</html>`, name, message, shortID, u.Status)
}
