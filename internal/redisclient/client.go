package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client wraps Redis access for the stock mirror: a best-effort copy of
// product quantities that the storefront reads instead of hitting
// Postgres. Postgres stays authoritative; the mirror may lag.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock writes a product's stock count to the mirror.
func (c *Client) SetStock(ctx context.Context, productID int64, quantity int) error {
	return c.rdb.Set(ctx, stockKey(productID), quantity, 0).Err()
}

// GetStock reads a product's mirrored stock count. Returns (0, false, nil)
// when the product is not mirrored.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	qty, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock value for product %d: %w", productID, err)
	}
	return qty, true, nil
}

// SetStockBatch mirrors several products in one pipeline.
func (c *Client) SetStockBatch(ctx context.Context, quantities map[int64]int) error {
	pipe := c.rdb.Pipeline()
	for productID, qty := range quantities {
		pipe.Set(ctx, stockKey(productID), qty, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}
