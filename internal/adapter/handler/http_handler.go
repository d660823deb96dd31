package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rl1809/gold-inventory/internal/core/domain"
	"github.com/rl1809/gold-inventory/internal/core/service"
)

const (
	customerHeader = "X-Customer-ID"
	customerKey    = "customer_id"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	inventory *service.InventoryService
	carts     *service.CartService
	checkout  *service.CheckoutService
	reports   *service.ReportService
	sessions  *SessionRegistry
	store     Pinger
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

type Services struct {
	Inventory *service.InventoryService
	Carts     *service.CartService
	Checkout  *service.CheckoutService
	Reports   *service.ReportService
}

func NewHTTPHandler(svc Services, sessions *SessionRegistry, store Pinger, timeout time.Duration, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		inventory: svc.Inventory,
		carts:     svc.Carts,
		checkout:  svc.Checkout,
		reports:   svc.Reports,
		sessions:  sessions,
		store:     store,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Router builds the gin engine with every route registered.
func (h *HTTPHandler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.accessLog(), h.requestTimeout())
	h.RegisterRoutes(router)
	return router
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		items := api.Group("/items")
		{
			items.GET("", h.ListItems)
			items.POST("", h.AddItem)
			items.PUT("/:id", h.UpdateItem)
			items.DELETE("/:id", h.DeleteItem)
		}

		cart := api.Group("/cart", h.requireCustomer())
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:id", h.UpdateCartItem)
			cart.DELETE("/items/:id", h.RemoveCartItem)
		}

		checkout := api.Group("/checkout", h.requireCustomer())
		{
			checkout.GET("/preview", h.PreviewCheckout)
			checkout.POST("", h.Checkout)
		}

		api.GET("/sales/history", h.requireCustomer(), h.PurchaseHistory)
		api.GET("/sales/daily", h.DailySales)
	}
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("health check: store unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "up"})
}

func (h *HTTPHandler) ListItems(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))

	items, err := h.inventory.ListItems(c.Request.Context(), !all)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ItemResponse, len(items))
	for i, item := range items {
		resp[i] = toItemResponse(item)
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *HTTPHandler) AddItem(c *gin.Context) {
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	item, err := h.inventory.AddItem(c.Request.Context(), req.toNewItem())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	item, err := h.inventory.UpdateItem(c.Request.Context(), id, req.toNewItem())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *HTTPHandler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inventory.DeleteItem(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) GetCart(c *gin.Context) {
	var resp CartResponse
	err := h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		resp = toCartResponse(cart)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	ctx := c.Request.Context()
	item, err := h.inventory.GetItem(ctx, req.ItemID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var resp CartResponse
	err = h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		if _, err := h.carts.AddOrIncrement(ctx, cart, item, req.Quantity); err != nil {
			return err
		}
		resp = toCartResponse(cart)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) UpdateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	ctx := c.Request.Context()
	var resp CartResponse
	err := h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		if _, err := h.carts.UpdateQuantity(ctx, cart, id, *req.Quantity); err != nil {
			return err
		}
		resp = toCartResponse(cart)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) RemoveCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var resp CartResponse
	err := h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		if !h.carts.Remove(cart, id) {
			return service.ErrItemNotInCart
		}
		resp = toCartResponse(cart)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) ClearCart(c *gin.Context) {
	var resp CartResponse
	err := h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		h.carts.Clear(cart)
		resp = toCartResponse(cart)
		return nil
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) PreviewCheckout(c *gin.Context) {
	ctx := c.Request.Context()

	var quote *domain.Quote
	err := h.sessions.WithCart(customerID(c), func(cart *domain.Cart) error {
		var err error
		quote, err = h.checkout.Preview(ctx, cart)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	lines := make([]CartLineResponse, len(quote.Lines))
	for i, l := range quote.Lines {
		lines[i] = toCartLineResponse(l)
	}
	c.JSON(http.StatusOK, QuoteResponse{
		Lines:    lines,
		Total:    quote.Total.Amount.StringFixed(2),
		Currency: quote.Total.Currency.String(),
		Units:    quote.Units,
	})
}

func (h *HTTPHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()
	id := customerID(c)

	var receipt *domain.Receipt
	err := h.sessions.WithCart(id, func(cart *domain.Cart) error {
		var err error
		receipt, err = h.checkout.Checkout(ctx, id, cart)
		return err
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

func (h *HTTPHandler) PurchaseHistory(c *gin.Context) {
	sales, err := h.reports.PurchaseHistory(c.Request.Context(), customerID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]SaleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toSaleResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"sales": resp})
}

func (h *HTTPHandler) DailySales(c *gin.Context) {
	day := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			badRequest(c, "INVALID_DATE", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	report, err := h.reports.DailySales(c.Request.Context(), day)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sales := make([]SaleResponse, len(report.Sales))
	for i, s := range report.Sales {
		sales[i] = toSaleResponse(s)
	}
	c.JSON(http.StatusOK, DailyReportResponse{
		Date:     report.Day.Format(time.DateOnly),
		Sales:    sales,
		Total:    report.Total.Amount.StringFixed(2),
		Currency: report.Total.Currency.String(),
		Units:    report.Units,
	})
}

func (h *HTTPHandler) requireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(customerHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Code:    "INVALID_CUSTOMER",
				Message: customerHeader + " header must be a positive integer",
			})
			return
		}
		c.Set(customerKey, id)
		c.Next()
	}
}

func customerID(c *gin.Context) int64 {
	return c.GetInt64(customerKey)
}

func (h *HTTPHandler) requestTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *HTTPHandler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "INVALID_ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: code, Message: message})
}

// writeError maps service errors onto HTTP statuses and stable error codes.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	var stockErr *service.StockError
	var conflict *service.ConflictError

	switch {
	case errors.As(err, &stockErr):
		shortages := make([]ShortageResponse, len(stockErr.Shortages))
		for i, s := range stockErr.Shortages {
			shortages[i] = ShortageResponse{ItemID: s.ItemID, Name: s.Name, Requested: s.Requested, Available: s.Available}
		}
		c.JSON(http.StatusConflict, ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: err.Error(), Shortages: shortages})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:      "CONCURRENT_STOCK_CHANGE",
			Message:   err.Error(),
			Retryable: true,
			ItemID:    conflict.ItemID,
		})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "EMPTY_CART", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_QUANTITY", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ITEM", Message: err.Error()})
	case errors.Is(err, service.ErrInvalidCustomer):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_CUSTOMER", Message: err.Error()})
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "ITEM_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, service.ErrItemNotInCart):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "ITEM_NOT_IN_CART", Message: err.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		h.logger.Error("storage unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "STORAGE_UNAVAILABLE", Message: "storage unavailable, try again later"})
	default:
		h.logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "internal error"})
	}
}
