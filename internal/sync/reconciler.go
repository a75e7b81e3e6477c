package sync

import (
	"context"
	"encoding/json"
	gosync "sync"
	"time"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/messaging"
	"github.com/maxsviluppo/ristosync/internal/metacache"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/repositories"
	"github.com/maxsviluppo/ristosync/internal/store"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const mirrorTimeout = 10 * time.Second

// Reconciler keeps the local store and the remote rows converging. Pulls
// are triggered by a fixed-interval timer, by change notices on the
// realtime feed, and by explicit Refresh calls; all three run the same
// idempotent pull-and-overwrite, so overlapping triggers are harmless.
// Push writes are fire-and-forget: the local store has already committed
// and stays authoritative for this device whatever the remote does.
type Reconciler struct {
	cfg           config.SyncConfig
	store         *store.Store
	meta          *metacache.Cache
	bus           *bus.Bus
	orderRepo     *repositories.OrderRepository
	menuRepo      *repositories.MenuRepository
	profileRepo   *repositories.ProfileRepository
	marketingRepo *repositories.MarketingRepository
	feed          *messaging.ChangeFeed
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
	deviceID      string

	mu        gosync.Mutex
	tenantID  string
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// NewReconciler creates a reconciler over the given databases and channels.
func NewReconciler(
	cfg config.SyncConfig,
	localStore *store.Store,
	meta *metacache.Cache,
	b *bus.Bus,
	db *gorm.DB,
	readOnlyDB *gorm.DB,
	feed *messaging.ChangeFeed,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Reconciler {
	return &Reconciler{
		cfg:           cfg,
		store:         localStore,
		meta:          meta,
		bus:           b,
		orderRepo:     repositories.NewOrderRepository(db, readOnlyDB),
		menuRepo:      repositories.NewMenuRepository(db, readOnlyDB),
		profileRepo:   repositories.NewProfileRepository(db, readOnlyDB),
		marketingRepo: repositories.NewMarketingRepository(db, readOnlyDB),
		feed:          feed,
		metrics:       m,
		tracer:        tracer,
		deviceID:      uuid.New().String(),
	}
}

// Start opens a sync session for the tenant: an interval pull timer and,
// when configured, a realtime feed listener. A second Start without a Stop
// is an error.
func (r *Reconciler) Start(ctx context.Context, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler != nil {
		return errors.New("reconciler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		return errors.Wrap(err, "failed to create scheduler")
	}

	interval := r.cfg.PullInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	// The timer is the resilience fallback: even with the realtime feed
	// down, every device converges within one interval.
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := r.Refresh(runCtx); err != nil {
				log.Error().Err(err).Msg("Periodic pull failed")
			}
		}),
	)
	if err != nil {
		cancel()
		return errors.Wrap(err, "failed to schedule pull job")
	}

	r.tenantID = tenantID
	r.scheduler = scheduler
	r.cancel = cancel
	scheduler.Start()

	if r.feed != nil && r.feed.Enabled() {
		go func() {
			err := r.feed.Listen(runCtx, tenantID, func(notice messaging.ChangeNotice) {
				if notice.Device == r.deviceID {
					return
				}
				if err := r.Refresh(runCtx); err != nil {
					log.Error().Err(err).Str("kind", notice.Kind).Msg("Push-triggered pull failed")
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("Realtime feed listener stopped")
			}
		}()
	}

	log.Info().Str("tenant_id", tenantID).Dur("interval", interval).Msg("Sync session started")
	return nil
}

// Stop tears the session down: the timer and the feed listener are
// cancelled so no background pull outlives a logout.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler == nil {
		return
	}
	r.cancel()
	if err := r.scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown error")
	}
	r.scheduler = nil
	r.cancel = nil
	r.tenantID = ""
	log.Info().Msg("Sync session stopped")
}

func (r *Reconciler) tenant() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tenantID != "" {
		return r.tenantID
	}
	return r.cfg.TenantID
}

// Refresh pulls every collection, merges with the metadata cache and
// republishes to the local store. Individual section failures are logged
// and do not stop the remaining sections; the first one is returned so
// explicit callers can see the session is degraded.
func (r *Reconciler) Refresh(ctx context.Context) error {
	txn := r.tracer.StartTransaction("sync-refresh")
	defer r.tracer.EndTransaction(txn)

	r.metrics.IncrementCounter(metrics.CounterSyncPulls)

	var firstErr error
	keep := func(err error) {
		if err != nil {
			r.tracer.RecordError(txn, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	span := r.tracer.StartSpan("pull-orders", txn)
	keep(r.pullOrders(ctx))
	span.End()

	span = r.tracer.StartSpan("pull-menu", txn)
	keep(r.pullMenu(ctx))
	span.End()

	span = r.tracer.StartSpan("pull-profile", txn)
	keep(r.pullProfile(ctx))
	span.End()

	span = r.tracer.StartSpan("pull-marketing", txn)
	keep(r.pullMarketing(ctx))
	span.End()

	return firstErr
}

func (r *Reconciler) pullOrders(ctx context.Context) error {
	window := r.cfg.PullWindow
	if window <= 0 {
		window = 48 * time.Hour
	}
	rows, err := r.orderRepo.PullWindow(ctx, r.tenant(), time.Now().Add(-window))
	if err != nil {
		return errors.Wrap(err, "failed to pull orders")
	}

	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		order, err := DecodeOrder(row)
		if err != nil {
			log.Warn().Err(err).Str("order_id", row.ID).Msg("Skipping undecodable order row")
			continue
		}
		orders = append(orders, order)
	}

	orders = r.meta.Restore(orders)
	r.meta.Record(orders)

	if err := r.store.Write(store.KeyOrders, orders); err != nil {
		return errors.Wrap(err, "failed to republish orders")
	}
	r.bus.Publish(bus.TopicOrdersChanged)
	return nil
}

func (r *Reconciler) pullMenu(ctx context.Context) error {
	rows, err := r.menuRepo.List(ctx, r.tenant())
	if err != nil {
		return errors.Wrap(err, "failed to pull menu")
	}

	items := make([]models.MenuItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, DecodeMenuItem(row))
	}

	if err := r.store.Write(store.KeyMenu, items); err != nil {
		return errors.Wrap(err, "failed to republish menu")
	}
	r.bus.Publish(bus.TopicMenuChanged)
	return nil
}

func (r *Reconciler) pullProfile(ctx context.Context) error {
	row, err := r.profileRepo.Get(ctx, r.tenant())
	if err != nil {
		return errors.Wrap(err, "failed to pull profile")
	}

	settings := models.DefaultSettings()
	if row != nil && len(row.Settings) > 0 {
		var incoming models.AppSettings
		if err := json.Unmarshal(row.Settings, &incoming); err != nil {
			log.Warn().Err(err).Msg("Malformed remote settings blob, keeping defaults")
		} else {
			settings = models.MergeSettings(settings, incoming)
		}
	}

	if err := r.store.Write(store.KeySettings, settings); err != nil {
		return errors.Wrap(err, "failed to republish settings")
	}
	if row != nil && row.AICredential != "" {
		if err := r.store.Write(store.KeyAICredential, row.AICredential); err != nil {
			return errors.Wrap(err, "failed to republish AI credential")
		}
	}
	r.bus.Publish(bus.TopicSettingsChanged)
	return nil
}

func (r *Reconciler) pullMarketing(ctx context.Context) error {
	tenant := r.tenant()

	promoRows, err := r.marketingRepo.ListPromotions(ctx, tenant)
	if err != nil {
		return errors.Wrap(err, "failed to pull promotions")
	}
	promotions := make([]models.Promotion, 0, len(promoRows))
	for _, row := range promoRows {
		promotions = append(promotions, models.Promotion{
			ID: row.ID, Title: row.Title, Body: row.Body,
			StartsAt: row.StartsAt, EndsAt: row.EndsAt,
			Active: row.Active, CreatedAt: row.CreatedAt,
		})
	}

	autoRows, err := r.marketingRepo.ListAutomations(ctx, tenant)
	if err != nil {
		return errors.Wrap(err, "failed to pull automations")
	}
	automations := make([]models.Automation, 0, len(autoRows))
	for _, row := range autoRows {
		automations = append(automations, models.Automation{
			ID: row.ID, Name: row.Name, Trigger: row.Trigger,
			Action: row.Action, Enabled: row.Enabled, CreatedAt: row.CreatedAt,
		})
	}

	postRows, err := r.marketingRepo.ListSocialPosts(ctx, tenant)
	if err != nil {
		return errors.Wrap(err, "failed to pull social posts")
	}
	posts := make([]models.SocialPost, 0, len(postRows))
	for _, row := range postRows {
		posts = append(posts, models.SocialPost{
			ID: row.ID, Channel: row.Channel, Body: row.Body,
			ScheduledAt: row.ScheduledAt, Published: row.Published, CreatedAt: row.CreatedAt,
		})
	}

	if err := r.store.Write(store.KeyPromotions, promotions); err != nil {
		return errors.Wrap(err, "failed to republish promotions")
	}
	if err := r.store.Write(store.KeyAutomations, automations); err != nil {
		return errors.Wrap(err, "failed to republish automations")
	}
	if err := r.store.Write(store.KeySocialPosts, posts); err != nil {
		return errors.Wrap(err, "failed to republish social posts")
	}
	r.bus.Publish(bus.TopicMarketingChanged)
	return nil
}
