package mocks

import (
	"context"

	"checkout-service/internal/models"
	"checkout-service/internal/notify"

	"github.com/stretchr/testify/mock"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) CreateUser(ctx context.Context, phone, name, email string, isGuest bool) (*models.User, error) {
	args := m.Called(ctx, phone, name, email, isGuest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateUserPhone(ctx context.Context, userID, phone string) (*models.User, error) {
	args := m.Called(ctx, userID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateUserEmail(ctx context.Context, userID, email string) (*models.User, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) ClaimPhoneForUser(ctx context.Context, userID, phone string) (*models.User, error) {
	args := m.Called(ctx, userID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) MergeUsers(ctx context.Context, mainUserID, guestUserID, phone string) (*models.User, error) {
	args := m.Called(ctx, mainUserID, guestUserID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockCheckoutStore struct {
	mock.Mock
}

func (m *MockCheckoutStore) CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	args := m.Called(ctx, order, items)
	return args.Error(0)
}

func (m *MockCheckoutStore) CountPendingOrdersByPhone(ctx context.Context, phone string) (int, error) {
	args := m.Called(ctx, phone)
	return args.Int(0), args.Error(1)
}

type MockStockAdjuster struct {
	mock.Mock
}

func (m *MockStockAdjuster) Apply(ctx context.Context, orderID string, items []models.OrderItem) {
	m.Called(ctx, orderID, items)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendOrderConfirmation(email, name string, summary notify.OrderSummary) error {
	args := m.Called(email, name, summary)
	return args.Error(0)
}

func (m *MockMailer) SendOrderStatusUpdate(email, name string, update notify.StatusUpdate) error {
	args := m.Called(email, name, update)
	return args.Error(0)
}

type MockInventoryStore struct {
	mock.Mock
}

func (m *MockInventoryStore) DecrementStock(ctx context.Context, productID int64, quantity int) (int, bool, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockInventoryStore) FlagOrderStockIssue(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockInventoryStore) GetProducts(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockInventoryStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderItem), args.Error(1)
}

func (m *MockOrderStore) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *MockOrderStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
