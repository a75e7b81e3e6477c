package services

import (
	"time"

	"github.com/maxsviluppo/ristosync/internal/models"
)

// Mirror is the fire-and-forget remote leg of every local mutation. The
// local store commits first and stays authoritative for this device; a
// mirror implementation pushes asynchronously and swallows its own
// failures. The sync reconciler is the production implementation.
type Mirror interface {
	PushOrders(orders ...models.Order)
	PushMenuItem(item models.MenuItem)
	RemoveMenuItem(id string)
	PushSettings(settings models.AppSettings, aiCredential string)
	PushPromotion(p models.Promotion)
	PushAutomation(a models.Automation)
	PushSocialPost(p models.SocialPost)
	PurgeOrders(before time.Time)
	EraseOrders()
}

// SettingsProvider exposes the current settings to services that need the
// category routing table without owning the settings lifecycle.
type SettingsProvider interface {
	Current() models.AppSettings
}
