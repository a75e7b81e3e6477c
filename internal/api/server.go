package api

import (
	"context"
	"net/http"
	"time"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/api/handlers"
	"github.com/maxsviluppo/ristosync/internal/api/middleware"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/search"
	"github.com/maxsviluppo/ristosync/internal/services"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	orders     *services.OrderService
	menu       *services.MenuService
	settings   *services.SettingsService
	marketing  *services.MarketingService
	search     *search.ElasticClient
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	orders *services.OrderService,
	menu *services.MenuService,
	settings *services.SettingsService,
	marketing *services.MarketingService,
	esClient *search.ElasticClient,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:    cfg,
		orders:    orders,
		menu:      menu,
		settings:  settings,
		marketing: marketing,
		search:    esClient,
		metrics:   m,
		tracer:    tracer,
	}

	router := server.setupRouter()
	server.router = router

	server.httpServer = &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	handlers.NewOrdersHandler(s.orders, s.tracer).RegisterRoutes(router)
	handlers.NewMenuHandler(s.menu, s.tracer).RegisterRoutes(router)
	handlers.NewSettingsHandler(s.settings, s.orders).RegisterRoutes(router)
	handlers.NewMarketingHandler(s.marketing, s.menu, s.settings).RegisterRoutes(router)
	handlers.NewMetricsHandler(s.metrics, s.tracer).RegisterRoutes(router)
	if s.search != nil {
		handlers.NewReportsHandler(s.search, s.tracer, s.config.Sync.TenantID).RegisterRoutes(router)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
