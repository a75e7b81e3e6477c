package services

import (
	"testing"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"

	"github.com/stretchr/testify/require"
)

func newSettingsService() (*SettingsService, *bus.Bus) {
	b := bus.New()
	s := store.New(&memBackend{data: map[string][]byte{}}, b)
	return NewSettingsService(s, b, &recordingMirror{}), b
}

func TestCurrentReturnsDefaultsOnFreshStore(t *testing.T) {
	svc, _ := newSettingsService()

	settings := svc.Current()
	require.Equal(t, "Ristorante", settings.RestaurantName)
	require.Equal(t, 12, settings.TableCount)
	require.Equal(t, models.DepartmentDiningRoom, settings.CategoryRouting[models.CategoryDrinks])
}

func TestSaveMergesOverDefaults(t *testing.T) {
	svc, b := newSettingsService()

	events := 0
	b.Subscribe(bus.TopicSettingsChanged, func(bus.Topic) { events++ })

	saved := svc.Save(models.AppSettings{RestaurantName: "Da Mario", TableCount: 20})
	require.Equal(t, "Da Mario", saved.RestaurantName)
	require.Equal(t, 20, saved.TableCount)
	require.NotEmpty(t, saved.CategoryRouting)
	require.Equal(t, 1, events)

	// A later partial save keeps what the earlier one set only when resent;
	// the object is whole-replace over defaults, not incremental.
	again := svc.Save(models.AppSettings{TableCount: 8})
	require.Equal(t, 8, again.TableCount)
	require.Equal(t, "Ristorante", again.RestaurantName)
}

func TestWaiterIsDeviceLocal(t *testing.T) {
	svc, _ := newSettingsService()

	require.Empty(t, svc.Waiter())
	svc.SetWaiter("Anna")
	require.Equal(t, "Anna", svc.Waiter())
}

func TestAICredentialRoundTrip(t *testing.T) {
	svc, _ := newSettingsService()

	require.Empty(t, svc.AICredential())
	svc.SetAICredential("key-123")
	require.Equal(t, "key-123", svc.AICredential())
}
