package handlers

import (
	"net/http"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/services"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// MenuHandler handles menu-related HTTP requests
type MenuHandler struct {
	menu   *services.MenuService
	tracer tracing.Tracer
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(menu *services.MenuService, tracer tracing.Tracer) *MenuHandler {
	return &MenuHandler{menu: menu, tracer: tracer}
}

// RegisterRoutes registers the menu routes
func (h *MenuHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/menu")
	{
		group.GET("", h.HandleListMenu)
		group.POST("", h.HandleSaveItem)
		group.DELETE("/:id", h.HandleDeleteItem)
		group.POST("/import", h.HandleImportFromImage)
	}
}

// HandleListMenu returns the full menu catalogue
func (h *MenuHandler) HandleListMenu(c *gin.Context) {
	c.JSON(http.StatusOK, h.menu.List(c.Request.Context()))
}

// HandleSaveItem inserts or updates a menu item
func (h *MenuHandler) HandleSaveItem(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.menu.Save(c.Request.Context(), item)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidCategory) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandleDeleteItem removes a menu item
func (h *MenuHandler) HandleDeleteItem(c *gin.Context) {
	if err := h.menu.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrItemNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportMenuRequest carries a base64 encoded photo of a printed menu
type ImportMenuRequest struct {
	Image    string `json:"image" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
}

// HandleImportFromImage extracts and saves menu items from a photo
func (h *MenuHandler) HandleImportFromImage(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-import-menu")
	defer h.tracer.EndTransaction(txn)

	var req ImportMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	saved := h.menu.ImportFromImage(c.Request.Context(), req.Image, req.MimeType)
	c.JSON(http.StatusOK, gin.H{"imported": len(saved), "items": saved})
}
