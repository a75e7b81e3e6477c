package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/services"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OrdersHandler handles order-related HTTP requests
type OrdersHandler struct {
	orders *services.OrderService
	tracer tracing.Tracer
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(orders *services.OrderService, tracer tracing.Tracer) *OrdersHandler {
	return &OrdersHandler{orders: orders, tracer: tracer}
}

// RegisterRoutes registers the order routes
func (h *OrdersHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/orders")
	{
		group.GET("", h.HandleListOrders)
		group.GET("/:id", h.HandleGetOrder)
		group.POST("", h.HandleCreateOrder)
		group.POST("/:id/items", h.HandleMergeItems)
		group.POST("/:id/items/:index/toggle", h.HandleToggleItem)
		group.POST("/:id/items/:index/serve", h.HandleServeItem)
		group.POST("/:id/advance", h.HandleAdvanceStatus)
		group.POST("/tables/:table/free", h.HandleFreeTable)
		group.POST("/history/purge", h.HandlePurgeHistory)
	}
}

// CreateOrderRequest represents an incoming order creation request
type CreateOrderRequest struct {
	Table    string               `json:"table" binding:"required"`
	Items    []models.OrderItem   `json:"items" binding:"required"`
	Staff    string               `json:"staff"`
	Delivery *models.DeliveryInfo `json:"delivery"`
}

// ItemScopeRequest selects a combo sub-part for item mutations
type ItemScopeRequest struct {
	SubItemID string `json:"subItemId"`
}

// HandleListOrders returns all live and archived orders
func (h *OrdersHandler) HandleListOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.orders.List())
}

// HandleGetOrder returns a single order by id
func (h *OrdersHandler) HandleGetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleCreateOrder creates a new order, or merges into the open order
// already seated at the same table
func (h *OrdersHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "table", req.Table)
	h.tracer.AddAttribute(txn, "items", len(req.Items))

	order, err := h.orders.CreateOrder(req.Table, req.Items, req.Staff, req.Delivery)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrNoItems) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// HandleMergeItems appends items to an existing order
func (h *OrdersHandler) HandleMergeItems(c *gin.Context) {
	var items []models.OrderItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.MergeItems(c.Param("id"), items)
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleToggleItem flips an item's (or combo sub-part's) completion flag
func (h *OrdersHandler) HandleToggleItem(c *gin.Context) {
	h.mutateItem(c, h.orders.ToggleItemCompletion)
}

// HandleServeItem marks an item (or combo sub-part) as served
func (h *OrdersHandler) HandleServeItem(c *gin.Context) {
	h.mutateItem(c, h.orders.ServeItem)
}

func (h *OrdersHandler) mutateItem(c *gin.Context, fn func(string, int, string) (models.Order, error)) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
		return
	}

	var req ItemScopeRequest
	_ = c.ShouldBindJSON(&req)

	order, err := fn(c.Param("id"), index, req.SubItemID)
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleAdvanceStatus moves an order one step along its lifecycle
func (h *OrdersHandler) HandleAdvanceStatus(c *gin.Context) {
	order, err := h.orders.AdvanceStatus(c.Param("id"))
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// HandleFreeTable archives every live order on a table
func (h *OrdersHandler) HandleFreeTable(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-free-table")
	defer h.tracer.EndTransaction(txn)

	archived := h.orders.FreeTable(c.Param("table"))
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

// PurgeHistoryRequest selects the archive cutoff
type PurgeHistoryRequest struct {
	Before time.Time `json:"before" binding:"required"`
}

// HandlePurgeHistory deletes archived orders older than the cutoff
func (h *OrdersHandler) HandlePurgeHistory(c *gin.Context) {
	var req PurgeHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed := h.orders.PurgeHistory(req.Before)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBadItemIndex), errors.Is(err, services.ErrNoItems):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
