package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maxsviluppo/ristosync/internal/messaging"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/repositories"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// mirror runs a remote write in the background. The local store already
// committed, so a failure here is logged and swallowed; it is never
// surfaced to the staff-facing flow and never rolled back locally. On
// success the other devices are nudged through the change feed.
func (r *Reconciler) mirror(kind string, fn func(ctx context.Context) error) {
	tenant := r.tenant()
	if tenant == "" {
		log.Debug().Str("kind", kind).Msg("No active session, skipping remote mirror")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.metrics.RecordError(metrics.CounterSyncPushes)
			log.Error().Err(err).Str("kind", kind).Msg("Remote mirror write failed")
			return
		}
		r.metrics.RecordSuccess(metrics.CounterSyncPushes)

		if r.feed != nil {
			notice := messaging.ChangeNotice{Kind: kind, Device: r.deviceID, Time: time.Now().UTC()}
			if err := r.feed.Notify(ctx, tenant, notice); err != nil {
				log.Warn().Err(err).Str("kind", kind).Msg("Failed to publish change notice")
			}
		}
	}()
}

// PushOrders mirrors the given orders to the remote rows, last writer wins
// per row.
func (r *Reconciler) PushOrders(orders ...models.Order) {
	tenant := r.tenant()
	r.mirror("orders", func(ctx context.Context) error {
		for _, order := range orders {
			row, err := EncodeOrder(tenant, order)
			if err != nil {
				return err
			}
			if err := r.orderRepo.Upsert(ctx, row); err != nil {
				return errors.Wrapf(err, "failed to upsert order %s", order.ID)
			}
		}
		return nil
	})
}

// PushMenuItem mirrors one menu item.
func (r *Reconciler) PushMenuItem(item models.MenuItem) {
	tenant := r.tenant()
	r.mirror("menu", func(ctx context.Context) error {
		row, err := EncodeMenuItem(tenant, item)
		if err != nil {
			return err
		}
		return r.menuRepo.Upsert(ctx, row)
	})
}

// RemoveMenuItem mirrors a menu item deletion.
func (r *Reconciler) RemoveMenuItem(id string) {
	tenant := r.tenant()
	r.mirror("menu", func(ctx context.Context) error {
		return r.menuRepo.Delete(ctx, tenant, id)
	})
}

// PushSettings mirrors the whole settings object and the AI credential.
func (r *Reconciler) PushSettings(settings models.AppSettings, aiCredential string) {
	tenant := r.tenant()
	r.mirror("settings", func(ctx context.Context) error {
		blob, err := json.Marshal(settings)
		if err != nil {
			return errors.Wrap(err, "failed to marshal settings")
		}
		return r.profileRepo.Save(ctx, &repositories.ProfileRow{
			TenantID:     tenant,
			Settings:     blob,
			AICredential: aiCredential,
		})
	})
}

// PushPromotion mirrors one promotion.
func (r *Reconciler) PushPromotion(p models.Promotion) {
	tenant := r.tenant()
	r.mirror("marketing", func(ctx context.Context) error {
		return r.marketingRepo.UpsertPromotion(ctx, &repositories.PromotionRow{
			ID: p.ID, TenantID: tenant, Title: p.Title, Body: p.Body,
			StartsAt: p.StartsAt, EndsAt: p.EndsAt, Active: p.Active,
		})
	})
}

// PushAutomation mirrors one automation.
func (r *Reconciler) PushAutomation(a models.Automation) {
	tenant := r.tenant()
	r.mirror("marketing", func(ctx context.Context) error {
		return r.marketingRepo.UpsertAutomation(ctx, &repositories.AutomationRow{
			ID: a.ID, TenantID: tenant, Name: a.Name,
			Trigger: a.Trigger, Action: a.Action, Enabled: a.Enabled,
		})
	})
}

// PushSocialPost mirrors one social post.
func (r *Reconciler) PushSocialPost(p models.SocialPost) {
	tenant := r.tenant()
	r.mirror("marketing", func(ctx context.Context) error {
		return r.marketingRepo.UpsertSocialPost(ctx, &repositories.SocialPostRow{
			ID: p.ID, TenantID: tenant, Channel: p.Channel, Body: p.Body,
			ScheduledAt: p.ScheduledAt, Published: p.Published,
		})
	})
}

// PurgeOrders mirrors an explicit history purge by date.
func (r *Reconciler) PurgeOrders(before time.Time) {
	tenant := r.tenant()
	r.mirror("orders", func(ctx context.Context) error {
		return r.orderRepo.DeleteBefore(ctx, tenant, before)
	})
}

// EraseOrders mirrors a factory reset of the order rows.
func (r *Reconciler) EraseOrders() {
	tenant := r.tenant()
	r.mirror("orders", func(ctx context.Context) error {
		return r.orderRepo.DeleteAll(ctx, tenant)
	})
}
