package cmd

import (
	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/cache"
	"github.com/maxsviluppo/ristosync/internal/database"
	"github.com/maxsviluppo/ristosync/internal/genai"
	"github.com/maxsviluppo/ristosync/internal/messaging"
	"github.com/maxsviluppo/ristosync/internal/metacache"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/search"
	"github.com/maxsviluppo/ristosync/internal/services"
	"github.com/maxsviluppo/ristosync/internal/store"
	ordersync "github.com/maxsviluppo/ristosync/internal/sync"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// app holds every wired component shared by the api and worker commands.
type app struct {
	cfg        config.Config
	bus        *bus.Bus
	store      *store.Store
	meta       *metacache.Cache
	db         *gorm.DB
	readOnlyDB *gorm.DB
	redis      *cache.RedisCache
	feed       *messaging.ChangeFeed
	elastic    *search.ElasticClient
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	reconciler *ordersync.Reconciler

	orders    *services.OrderService
	menu      *services.MenuService
	settings  *services.SettingsService
	marketing *services.MarketingService
}

// initApp wires the full component graph from configuration. Optional
// backends (redis, elasticsearch, service bus, tracing) degrade to
// disabled instances with a warning.
func initApp(cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, bus: bus.New(), metrics: metrics.NewMetrics()}

	backend, err := store.NewFileBackend(cfg.Store.Dir, cfg.Store.QuotaBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open local store")
	}
	a.store = store.New(backend, a.bus)
	a.meta = metacache.New(a.store)

	a.db, a.readOnlyDB, err = database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(a.db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	a.redis, err = cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		a.redis = nil
	}

	a.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	a.elastic, err = search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		a.elastic = nil
	}

	a.feed, err = messaging.NewChangeFeed(cfg.ServiceBus)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize change feed, falling back to interval pulls only")
		a.feed = &messaging.ChangeFeed{}
	}

	a.reconciler = ordersync.NewReconciler(
		cfg.Sync, a.store, a.meta, a.bus,
		a.db, a.readOnlyDB, a.feed, a.metrics, a.tracer,
	)

	aiClient := genai.NewClient(cfg.AI, a.redis, a.metrics)

	a.settings = services.NewSettingsService(a.store, a.bus, a.reconciler)
	a.orders = services.NewOrderService(
		a.store, a.meta, a.bus, a.reconciler, a.settings,
		a.elastic, a.metrics, a.tracer, cfg.Sync.TenantID,
	)
	a.menu = services.NewMenuService(a.store, a.bus, a.reconciler, a.redis, aiClient, cfg.Sync.TenantID)
	a.marketing = services.NewMarketingService(a.store, a.bus, a.reconciler, aiClient)

	return a, nil
}

// close releases every connection the app holds.
func (a *app) close() {
	a.reconciler.Stop()
	if err := a.feed.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close change feed")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
	database.Close(a.db, a.readOnlyDB)
}
