package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed through checkout",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Total number of rejected checkout attempts",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the order placement workflow",
		Buckets: prometheus.DefBuckets,
	})

	UsersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "users_created_total",
		Help: "Total number of users created at checkout",
	}, []string{"kind"})

	GuestMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_merges_total",
		Help: "Total number of guest identities merged into accounts",
	})

	PhoneConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "phone_conflicts_total",
		Help: "Total number of checkouts hitting a phone owned by another account",
	})

	InventoryDecrementsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_decrements_failed_total",
		Help: "Total number of line items whose stock decrement did not apply",
	}, []string{"reason"})

	OrdersStockFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_stock_flagged_total",
		Help: "Total number of orders flagged for stock reconciliation",
	})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of order confirmation emails sent",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of order confirmation emails that failed after retries",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
