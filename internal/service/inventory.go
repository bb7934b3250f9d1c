package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the persistence surface for stock adjustment and
// stock reads.
type InventoryStore interface {
	DecrementStock(ctx context.Context, productID int64, quantity int) (remaining int, applied bool, err error)
	FlagOrderStockIssue(ctx context.Context, orderID string) error
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// Inventory decrements product stock for committed orders. Decrements are
// conditional: stock never goes negative. A line that cannot be fully
// decremented flags the order for manual reconciliation instead of
// failing it; the order itself is already durable at this point.
type Inventory struct {
	store  InventoryStore
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventory creates the stock adjuster. redis may be nil; the mirror
// is then skipped.
func NewInventory(store InventoryStore, redis *redisclient.Client) *Inventory {
	return &Inventory{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// Apply decrements stock for each line item of an order.
func (inv *Inventory) Apply(ctx context.Context, orderID string, items []models.OrderItem) {
	ctx, span := util.StartSpan(ctx, "Inventory.Apply")
	defer span.End()

	flag := false
	for _, item := range items {
		remaining, applied, err := inv.store.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			util.InventoryDecrementsFailedTotal.WithLabelValues("db_error").Inc()
			inv.logger.Error("Stock decrement failed",
				zap.String("order_id", orderID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			flag = true
			continue
		}
		if !applied {
			util.InventoryDecrementsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			inv.logger.Warn("Stock decrement skipped, insufficient stock",
				zap.String("order_id", orderID),
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity))
			flag = true
			continue
		}

		inv.mirrorStock(item.ProductID, remaining)
	}

	if flag {
		util.OrdersStockFlaggedTotal.Inc()
		if err := inv.store.FlagOrderStockIssue(ctx, orderID); err != nil {
			inv.logger.Error("Failed to flag order for stock review",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}
}

// mirrorStock pushes the new count to Redis so storefront reads stay
// cheap. Best-effort only.
func (inv *Inventory) mirrorStock(productID int64, remaining int) {
	if inv.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := inv.redis.SetStock(ctx, productID, remaining); err != nil {
		inv.logger.Warn("Failed to mirror stock to Redis",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// StockLevels returns current quantities for the requested products,
// preferring the Redis mirror and falling back to Postgres for products
// the mirror does not hold yet. Fetched counts are mirrored on the way
// out. Unknown product IDs are simply absent from the result.
func (inv *Inventory) StockLevels(ctx context.Context, ids []int64) (map[int64]int, error) {
	levels := make(map[int64]int, len(ids))

	var misses []int64
	for _, id := range ids {
		if inv.redis == nil {
			misses = append(misses, id)
			continue
		}
		qty, ok, err := inv.redis.GetStock(ctx, id)
		if err != nil {
			inv.logger.Warn("Stock mirror read failed",
				zap.Int64("product_id", id),
				zap.Error(err))
			misses = append(misses, id)
			continue
		}
		if !ok {
			misses = append(misses, id)
			continue
		}
		levels[id] = qty
	}

	if len(misses) > 0 {
		products, err := inv.store.GetProductsByIDs(ctx, misses)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			levels[p.ID] = p.Quantity
			inv.mirrorStock(p.ID, p.Quantity)
		}
	}

	return levels, nil
}

// SyncStockMirror seeds the Redis mirror from the database, typically at
// startup.
func (inv *Inventory) SyncStockMirror(ctx context.Context) error {
	if inv.redis == nil {
		return nil
	}

	products, err := inv.store.GetProducts(ctx)
	if err != nil {
		return err
	}

	quantities := make(map[int64]int, len(products))
	for _, p := range products {
		quantities[p.ID] = p.Quantity
	}

	if err := inv.redis.SetStockBatch(ctx, quantities); err != nil {
		return err
	}

	inv.logger.Info("Stock mirror synced", zap.Int("products", len(products)))
	return nil
}
