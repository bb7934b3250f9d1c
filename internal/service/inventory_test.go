package service

import (
	"context"
	"errors"
	"testing"

	"checkout-service/internal/mocks"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/mock"
)

func TestInventoryApplyDecrementsEveryLine(t *testing.T) {
	st := new(mocks.MockInventoryStore)
	st.On("DecrementStock", mock.Anything, int64(7), 2).Return(8, true, nil)
	st.On("DecrementStock", mock.Anything, int64(9), 1).Return(0, true, nil)

	inv := NewInventory(st, nil)
	inv.Apply(context.Background(), "ord-1", []models.OrderItem{
		{ProductID: 7, Quantity: 2},
		{ProductID: 9, Quantity: 1},
	})

	st.AssertExpectations(t)
	st.AssertNotCalled(t, "FlagOrderStockIssue")
}

func TestInventoryApplyFlagsOnInsufficientStock(t *testing.T) {
	st := new(mocks.MockInventoryStore)
	st.On("DecrementStock", mock.Anything, int64(7), 5).Return(0, false, nil)
	st.On("FlagOrderStockIssue", mock.Anything, "ord-1").Return(nil)

	inv := NewInventory(st, nil)
	inv.Apply(context.Background(), "ord-1", []models.OrderItem{
		{ProductID: 7, Quantity: 5},
	})

	st.AssertExpectations(t)
}

func TestInventoryApplyFlagsOnStoreError(t *testing.T) {
	st := new(mocks.MockInventoryStore)
	st.On("DecrementStock", mock.Anything, int64(7), 1).Return(0, false, errors.New("timeout"))
	st.On("DecrementStock", mock.Anything, int64(8), 1).Return(3, true, nil)
	st.On("FlagOrderStockIssue", mock.Anything, "ord-1").Return(nil)

	inv := NewInventory(st, nil)
	// One failing line does not stop the rest from decrementing.
	inv.Apply(context.Background(), "ord-1", []models.OrderItem{
		{ProductID: 7, Quantity: 1},
		{ProductID: 8, Quantity: 1},
	})

	st.AssertExpectations(t)
}

func TestStockLevelsReadsDatabaseWithoutMirror(t *testing.T) {
	st := new(mocks.MockInventoryStore)
	st.On("GetProductsByIDs", mock.Anything, []int64{7, 9, 11}).Return([]models.Product{
		{ID: 7, Quantity: 8},
		{ID: 9, Quantity: 0},
	}, nil)

	inv := NewInventory(st, nil)
	levels, err := inv.StockLevels(context.Background(), []int64{7, 9, 11})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Unknown product 11 is simply absent.
	if len(levels) != 2 || levels[7] != 8 || levels[9] != 0 {
		t.Fatalf("unexpected levels: %v", levels)
	}
	st.AssertExpectations(t)
}

func TestStockLevelsPropagatesStoreError(t *testing.T) {
	st := new(mocks.MockInventoryStore)
	st.On("GetProductsByIDs", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	inv := NewInventory(st, nil)
	_, err := inv.StockLevels(context.Background(), []int64{7})

	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSyncStockMirrorNoRedisIsNoop(t *testing.T) {
	st := new(mocks.MockInventoryStore)

	inv := NewInventory(st, nil)
	if err := inv.SyncStockMirror(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st.AssertNotCalled(t, "GetProducts")
}
