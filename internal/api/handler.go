package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/identity"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	checkoutService *service.CheckoutService
	orderService    *service.OrderService
	inventory       *service.Inventory
}

// NewHandler creates a new HTTP handler
func NewHandler(checkoutService *service.CheckoutService, orderService *service.OrderService, inventory *service.Inventory) *Handler {
	return &Handler{
		checkoutService: checkoutService,
		orderService:    orderService,
		inventory:       inventory,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", h.checkout)
		v1.GET("/stock", h.getStock)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/users/:id/orders", h.getUserOrders)
		v1.PATCH("/admin/orders/:id/status", h.updateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// checkout handles order placement. The authenticated identity, when
// present, arrives as an opaque X-User-ID header set by the upstream auth
// layer.
func (h *Handler) checkout(c *gin.Context) {
	var req service.PlaceOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req.UserID = c.GetHeader("X-User-ID")
	req.ClientIP = clientIP(c)

	resp, err := h.checkoutService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		status, msg := checkoutErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// checkoutErrorStatus maps workflow rejections to HTTP statuses. Unknown
// errors become an opaque 500 so internal detail never leaks.
func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrAddressTooShort),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrTooManyPending):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrRateLimited),
		errors.Is(err, service.ErrPhoneRateLimit):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, identity.ErrPhoneConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to create order"
	}
}

// getStock returns current stock levels for a comma-separated list of
// product IDs, e.g. GET /api/v1/stock?ids=7,9.
func (h *Handler) getStock(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing ids parameter"})
		return
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id: " + part})
			return
		}
		ids = append(ids, id)
	}

	levels, err := h.inventory.StockLevels(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": levels})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// getUserOrders lists a user's orders
func (h *Handler) getUserOrders(c *gin.Context) {
	orders, err := h.orderService.GetUserOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus handles admin status transitions
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), strings.ToUpper(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// clientIP prefers the first X-Forwarded-For hop, matching the storefront
// deployment behind a proxy.
func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return c.ClientIP()
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
