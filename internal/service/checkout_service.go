package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkout-service/config"
	"checkout-service/internal/identity"
	"checkout-service/internal/models"
	"checkout-service/internal/notify"
	"checkout-service/internal/ratelimit"
	"checkout-service/internal/util"
	"checkout-service/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checkout rejections. The HTTP layer maps these to status codes; anything
// else surfaces as an opaque internal error.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidPhone    = errors.New("invalid Bangladeshi phone number")
	ErrAddressTooShort = errors.New("please provide a more detailed address")
	ErrRateLimited     = errors.New("too many requests, please try again later")
	ErrPhoneRateLimit  = errors.New("too many orders for this phone number, please try again later")
	ErrBelowMinimum    = errors.New("order total is below the minimum order value")
	ErrTooManyPending  = errors.New("too many pending orders for this phone number")
)

// IdentityResolver resolves the user that owns a checkout.
type IdentityResolver interface {
	Resolve(ctx context.Context, p identity.ResolveParams) (*models.User, error)
}

// CheckoutStore is the persistence surface the workflow needs.
type CheckoutStore interface {
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	CountPendingOrdersByPhone(ctx context.Context, phone string) (int, error)
}

// StockAdjuster applies inventory decrements for a committed order.
type StockAdjuster interface {
	Apply(ctx context.Context, orderID string, items []models.OrderItem)
}

// OrderEventPublisher emits the post-commit OrderPlaced event.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// CartItem is one line of the submitted cart. UnitPrice and ImageURL are
// snapshotted onto the order item as-is.
type CartItem struct {
	ProductID     int64  `json:"productId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	UnitPrice     int64  `json:"unitPrice" binding:"required"`
	SelectedSize  string `json:"selectedSize,omitempty"`
	SelectedColor string `json:"selectedColor,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`
}

// PlaceOrderRequest carries one checkout attempt. UserID and ClientIP are
// filled by the transport layer, not by the client body.
type PlaceOrderRequest struct {
	Items           []CartItem             `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	Total           int64                  `json:"total"`
	UserID          string                 `json:"-"`
	ClientIP        string                 `json:"-"`
}

// PlaceOrderResponse is the success payload.
type PlaceOrderResponse struct {
	OrderID string `json:"orderId"`
}

// CheckoutService runs the order placement workflow.
type CheckoutService struct {
	store     CheckoutStore
	resolver  IdentityResolver
	limiter   *ratelimit.Limiter
	inventory StockAdjuster
	publisher OrderEventPublisher
	mailer    notify.Mailer
	cfg       config.CheckoutConfig
	logger    *zap.Logger
}

func NewCheckoutService(
	store CheckoutStore,
	resolver IdentityResolver,
	limiter *ratelimit.Limiter,
	inventory StockAdjuster,
	publisher OrderEventPublisher,
	mailer notify.Mailer,
	cfg config.CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		store:     store,
		resolver:  resolver,
		limiter:   limiter,
		inventory: inventory,
		publisher: publisher,
		mailer:    mailer,
		cfg:       cfg,
		logger:    util.GetLogger(),
	}
}

// PlaceOrder turns a cart and shipping address into a persisted PENDING
// order. Validation and throttling run before any write; the order and its
// items commit in one transaction; inventory decrements and notification
// happen after the commit and never roll it back.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.Items) == 0 {
		util.CheckoutRejectedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	if !validate.PhoneNumber(req.ShippingAddress.PhoneNumber) {
		util.CheckoutRejectedTotal.WithLabelValues("invalid_phone").Inc()
		return nil, ErrInvalidPhone
	}

	if !validate.Address(req.ShippingAddress.Address) {
		util.CheckoutRejectedTotal.WithLabelValues("short_address").Inc()
		return nil, ErrAddressTooShort
	}

	// The canonical form keys everything downstream: rate limiting,
	// identity resolution and the persisted snapshot.
	phone := validate.FormatPhoneNumber(req.ShippingAddress.PhoneNumber)

	ip := req.ClientIP
	if ip == "" {
		ip = "local"
	}

	if !s.limiter.Allow("checkout_ip_"+ip, s.cfg.IPRateLimit, s.cfg.IPRateWindow) {
		util.CheckoutRejectedTotal.WithLabelValues("ip_rate_limit").Inc()
		s.logger.Warn("Checkout rate limit hit", zap.String("ip", ip))
		return nil, ErrRateLimited
	}

	if !s.limiter.Allow("checkout_phone_"+phone, s.cfg.PhoneRateLimit, s.cfg.PhoneRateWindow) {
		util.CheckoutRejectedTotal.WithLabelValues("phone_rate_limit").Inc()
		s.logger.Warn("Checkout rate limit hit", zap.String("phone", phone))
		return nil, ErrPhoneRateLimit
	}

	if req.Total < s.cfg.MinOrderValue {
		util.CheckoutRejectedTotal.WithLabelValues("below_minimum").Inc()
		return nil, ErrBelowMinimum
	}

	pending, err := s.store.CountPendingOrdersByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}
	if pending >= s.cfg.MaxPendingOrders {
		util.CheckoutRejectedTotal.WithLabelValues("pending_cap").Inc()
		return nil, ErrTooManyPending
	}

	user, err := s.resolver.Resolve(ctx, identity.ResolveParams{
		Phone:  phone,
		Name:   req.ShippingAddress.FullName,
		UserID: req.UserID,
		Email:  req.ShippingAddress.Email,
	})
	if err != nil {
		if errors.Is(err, identity.ErrPhoneConflict) {
			util.CheckoutRejectedTotal.WithLabelValues("phone_conflict").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	address := req.ShippingAddress
	address.PhoneNumber = phone

	order := &models.Order{
		UserID:          user.ID,
		PhoneNumber:     phone,
		Total:           req.Total,
		Status:          models.OrderStatusPending,
		PaymentMethod:   models.PaymentMethodCOD,
		ShippingAddress: address,
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, line := range req.Items {
		items[i] = models.OrderItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			SelectedSize:  nullable(line.SelectedSize),
			SelectedColor: nullable(line.SelectedColor),
			ImageURL:      nullable(line.ImageURL),
		}
	}

	if err := s.store.CreateOrderWithItems(ctx, order, items); err != nil {
		util.CheckoutRejectedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.Int64("total", order.Total))

	s.inventory.Apply(ctx, order.ID, items)

	s.notifyOrderPlaced(ctx, order, user, req.ShippingAddress, len(items))

	return &PlaceOrderResponse{OrderID: order.ID}, nil
}

// notifyOrderPlaced emits the OrderPlaced event for the notification
// worker. If the broker is unreachable the email is attempted directly in
// the background instead; either way the order result is unaffected.
func (s *CheckoutService) notifyOrderPlaced(ctx context.Context, order *models.Order, user *models.User, addr models.ShippingAddress, itemCount int) {
	email := user.Email.String
	if email == "" {
		email = addr.Email
	}

	name := user.Name.String
	if name == "" {
		name = addr.FullName
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		UserID:        user.ID,
		Total:         order.Total,
		Status:        order.Status,
		ItemCount:     itemCount,
		CustomerName:  name,
		CustomerEmail: email,
	}

	err := s.publisher.PublishOrderPlaced(ctx, event)
	if err == nil {
		return
	}
	s.logger.Error("Failed to publish OrderPlaced event, sending email directly",
		zap.String("order_id", order.ID),
		zap.Error(err))

	if email == "" {
		return
	}

	go func() {
		if err := s.mailer.SendOrderConfirmation(email, name, notify.OrderSummary{
			OrderID:   order.ID,
			Total:     order.Total,
			Status:    order.Status,
			ItemCount: itemCount,
		}); err != nil {
			s.logger.Error("Failed to send order confirmation",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
