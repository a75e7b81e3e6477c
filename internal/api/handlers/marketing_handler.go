package handlers

import (
	"net/http"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/services"

	"github.com/gin-gonic/gin"
)

// MarketingHandler handles marketing-related HTTP requests
type MarketingHandler struct {
	marketing *services.MarketingService
	menu      *services.MenuService
	settings  *services.SettingsService
}

// NewMarketingHandler creates a new marketing handler
func NewMarketingHandler(marketing *services.MarketingService, menu *services.MenuService, settings *services.SettingsService) *MarketingHandler {
	return &MarketingHandler{marketing: marketing, menu: menu, settings: settings}
}

// RegisterRoutes registers the marketing routes
func (h *MarketingHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/marketing")
	{
		group.GET("/promotions", h.HandleListPromotions)
		group.POST("/promotions", h.HandleSavePromotion)
		group.GET("/promotions/ideas", h.HandlePromotionIdeas)
		group.GET("/automations", h.HandleListAutomations)
		group.POST("/automations", h.HandleSaveAutomation)
		group.GET("/posts", h.HandleListPosts)
		group.POST("/posts", h.HandleSavePost)
		group.POST("/posts/draft", h.HandleDraftPost)
	}
}

// HandleListPromotions returns all promotions
func (h *MarketingHandler) HandleListPromotions(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketing.Promotions())
}

// HandleSavePromotion inserts or updates a promotion
func (h *MarketingHandler) HandleSavePromotion(c *gin.Context) {
	var p models.Promotion
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.marketing.SavePromotion(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandlePromotionIdeas suggests promotion titles from the current menu
func (h *MarketingHandler) HandlePromotionIdeas(c *gin.Context) {
	menu := h.menu.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ideas": h.marketing.PromotionIdeas(c.Request.Context(), menu)})
}

// HandleListAutomations returns all automations
func (h *MarketingHandler) HandleListAutomations(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketing.Automations())
}

// HandleSaveAutomation inserts or updates an automation
func (h *MarketingHandler) HandleSaveAutomation(c *gin.Context) {
	var a models.Automation
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.marketing.SaveAutomation(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// HandleListPosts returns all social post drafts
func (h *MarketingHandler) HandleListPosts(c *gin.Context) {
	c.JSON(http.StatusOK, h.marketing.SocialPosts())
}

// HandleSavePost inserts or updates a social post draft
func (h *MarketingHandler) HandleSavePost(c *gin.Context) {
	var p models.SocialPost
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.marketing.SaveSocialPost(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DraftPostRequest asks for generated post copy about a topic
type DraftPostRequest struct {
	Channel string `json:"channel" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
}

// HandleDraftPost generates and stores an unpublished post draft
func (h *MarketingHandler) HandleDraftPost(c *gin.Context) {
	var req DraftPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := h.settings.Current().RestaurantName
	post, err := h.marketing.DraftPost(c.Request.Context(), name, req.Channel, req.Topic)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, post)
}
