package handlers

import (
	"net/http"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/services"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related HTTP requests
type SettingsHandler struct {
	settings *services.SettingsService
	orders   *services.OrderService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *services.SettingsService, orders *services.OrderService) *SettingsHandler {
	return &SettingsHandler{settings: settings, orders: orders}
}

// RegisterRoutes registers the settings routes
func (h *SettingsHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/settings")
	{
		group.GET("", h.HandleGetSettings)
		group.PUT("", h.HandleSaveSettings)
		group.PUT("/waiter", h.HandleSetWaiter)
		group.PUT("/ai-credential", h.HandleSetAICredential)
		group.POST("/factory-reset", h.HandleFactoryReset)
	}
}

// HandleGetSettings returns the current settings merged over defaults
func (h *SettingsHandler) HandleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": h.settings.Current(),
		"waiter":   h.settings.Waiter(),
	})
}

// HandleSaveSettings replaces the whole settings object
func (h *SettingsHandler) HandleSaveSettings(c *gin.Context) {
	var settings models.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.settings.Save(settings))
}

// SetWaiterRequest names this device's waiter
type SetWaiterRequest struct {
	Name string `json:"name" binding:"required"`
}

// HandleSetWaiter stores this device's waiter identity
func (h *SettingsHandler) HandleSetWaiter(c *gin.Context) {
	var req SetWaiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settings.SetWaiter(req.Name)
	c.Status(http.StatusNoContent)
}

// SetCredentialRequest carries the generative-service credential
type SetCredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// HandleSetAICredential stores and mirrors the credential
func (h *SettingsHandler) HandleSetAICredential(c *gin.Context) {
	var req SetCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.settings.SetAICredential(req.Credential)
	c.Status(http.StatusNoContent)
}

// HandleFactoryReset wipes all order data, local and remote
func (h *SettingsHandler) HandleFactoryReset(c *gin.Context) {
	h.orders.FactoryReset()
	c.Status(http.StatusNoContent)
}
