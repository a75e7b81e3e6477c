package services

import (
	"testing"
	"time"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/metacache"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/stretchr/testify/require"
)

type memBackend struct {
	data map[string][]byte
}

func (b *memBackend) Put(key string, data []byte) error { b.data[key] = data; return nil }
func (b *memBackend) Get(key string) ([]byte, error)    { return b.data[key], nil }
func (b *memBackend) Delete(key string) error           { delete(b.data, key); return nil }

// recordingMirror captures the fire-and-forget pushes so tests can assert
// what would have been mirrored.
type recordingMirror struct {
	pushedOrders [][]models.Order
	purged       []time.Time
	erased       int
}

func (m *recordingMirror) PushOrders(orders ...models.Order) {
	m.pushedOrders = append(m.pushedOrders, orders)
}
func (m *recordingMirror) PushMenuItem(models.MenuItem)              {}
func (m *recordingMirror) RemoveMenuItem(string)                     {}
func (m *recordingMirror) PushSettings(models.AppSettings, string)   {}
func (m *recordingMirror) PushPromotion(models.Promotion)            {}
func (m *recordingMirror) PushAutomation(models.Automation)          {}
func (m *recordingMirror) PushSocialPost(models.SocialPost)          {}
func (m *recordingMirror) PurgeOrders(before time.Time)              { m.purged = append(m.purged, before) }
func (m *recordingMirror) EraseOrders()                              { m.erased++ }

type fixedSettings struct {
	settings models.AppSettings
}

func (f fixedSettings) Current() models.AppSettings { return f.settings }

func newTestService(t *testing.T) (*OrderService, *recordingMirror, *bus.Bus) {
	t.Helper()

	b := bus.New()
	s := store.New(&memBackend{data: map[string][]byte{}}, b)
	mirror := &recordingMirror{}
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)

	svc := NewOrderService(
		s, metacache.New(s), b, mirror,
		fixedSettings{settings: models.DefaultSettings()},
		nil, metrics.NewMetrics(), tracer, "tenant-1",
	)
	return svc, mirror, b
}

func mainCourse(id string) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: models.CategoryMains},
		Quantity: 1,
	}
}

func drink(id string) models.OrderItem {
	return models.OrderItem{
		MenuItem: models.MenuItem{ID: id, Name: id, Category: models.CategoryDrinks},
		Quantity: 1,
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder("4", nil, "Anna", nil)
	require.ErrorIs(t, err, ErrNoItems)
	require.Empty(t, svc.List())
}

func TestCreateOrderStartsPending(t *testing.T) {
	svc, mirror, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "Anna", nil)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, order.Status)
	require.Equal(t, "4", order.TableNumber)
	require.Equal(t, "Anna", order.Staff)
	require.Len(t, mirror.pushedOrders, 1)
}

func TestCreateOrderDiningRoomItemsStartCompleted(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Drinks route to the dining room by default and need no kitchen work,
	// so an all-drinks order is READY from the start.
	order, err := svc.CreateOrder("4", []models.OrderItem{drink("cola")}, "", nil)
	require.NoError(t, err)
	require.True(t, order.Items[0].Completed)
	require.Equal(t, models.StatusReady, order.Status)
}

func TestCreateOrderMergesIntoOpenTableOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	second, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m2")}, "", nil)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, second.Items, 2)
	require.Len(t, svc.List(), 1)
}

func TestMergeItemsGrowsQuantityAndResetsFlags(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, order.Status)

	order, err = svc.MergeItems(order.ID, []models.OrderItem{mainCourse("m1")})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	require.Equal(t, 2, order.Items[0].Quantity)
	require.False(t, order.Items[0].Completed)
	require.True(t, order.Items[0].IsAddedLater)
	// READY demotes straight to PENDING, the kitchen starts over.
	require.Equal(t, models.StatusPending, order.Status)
}

func TestMergeItemsNeverShrinksTheOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1"), mainCourse("m2")}, "", nil)
	require.NoError(t, err)

	order, err = svc.MergeItems(order.ID, []models.OrderItem{mainCourse("m1"), mainCourse("m3")})
	require.NoError(t, err)

	require.Len(t, order.Items, 3)
	totalQty := 0
	for _, it := range order.Items {
		totalQty += it.Quantity
	}
	require.Equal(t, 4, totalQty)
}

func TestMergeItemsDistinctNotesStayOnSeparateLines(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	noted := mainCourse("m1")
	noted.Notes = []string{"no salt"}
	order, err = svc.MergeItems(order.ID, []models.OrderItem{noted})
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	require.Equal(t, 1, order.Items[0].Quantity)
	require.Equal(t, []string{"no salt"}, order.Items[1].Notes)
}

func TestToggleItemCompletionIsSelfInverse(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1"), mainCourse("m2")}, "", nil)
	require.NoError(t, err)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	require.True(t, order.Items[0].Completed)
	require.Equal(t, models.StatusCooking, order.Status)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	require.False(t, order.Items[0].Completed)
	require.Equal(t, models.StatusPending, order.Status)
}

func TestToggleComboSubPart(t *testing.T) {
	svc, _, _ := newTestService(t)

	combo := models.OrderItem{
		MenuItem: models.MenuItem{
			ID:           "menu-fisso",
			Category:     models.CategoryCombo,
			ComboItemIDs: []string{"p1", "p2"},
		},
		Quantity: 1,
	}

	order, err := svc.CreateOrder("4", []models.OrderItem{combo}, "", nil)
	require.NoError(t, err)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "p1")
	require.NoError(t, err)
	require.False(t, order.Items[0].Completed)
	require.Equal(t, models.StatusCooking, order.Status)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "p2")
	require.NoError(t, err)
	require.True(t, order.Items[0].Completed)
	require.Equal(t, models.StatusReady, order.Status)
}

func TestToggleBadIndex(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	_, err = svc.ToggleItemCompletion(order.ID, 5, "")
	require.ErrorIs(t, err, ErrBadItemIndex)

	_, err = svc.ToggleItemCompletion("missing", 0, "")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestServeCompleteDropsOrderBackToPending(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1"), mainCourse("m2")}, "", nil)
	require.NoError(t, err)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	order, err = svc.ToggleItemCompletion(order.ID, 1, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, order.Status)

	order, err = svc.ServeItem(order.ID, 0, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusReady, order.Status)

	order, err = svc.ServeItem(order.ID, 1, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, order.Status)
	require.True(t, order.Items[0].Served)
	require.True(t, order.Items[1].Served)
}

func TestAdvanceStatusStopsAtDelivered(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	for _, want := range []models.Status{models.StatusCooking, models.StatusReady, models.StatusDelivered} {
		order, err = svc.AdvanceStatus(order.ID)
		require.NoError(t, err)
		require.Equal(t, want, order.Status)
	}

	order, err = svc.AdvanceStatus(order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusDelivered, order.Status)
}

func TestDeliveredIsTerminalForDerivation(t *testing.T) {
	svc, _, _ := newTestService(t)

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		order, err = svc.AdvanceStatus(order.ID)
		require.NoError(t, err)
	}
	require.Equal(t, models.StatusDelivered, order.Status)

	order, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusDelivered, order.Status)
}

func TestFreeTableArchivesAndIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	require.Equal(t, 1, svc.FreeTable("4"))

	orders := svc.List()
	require.Len(t, orders, 1)
	require.Equal(t, "4"+models.HistorySuffix, orders[0].TableNumber)
	require.Equal(t, models.StatusDelivered, orders[0].Status)
	require.True(t, orders[0].Archived())

	// Nothing left to archive.
	require.Zero(t, svc.FreeTable("4"))
}

func TestFreeTableLeavesOtherTablesAlone(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)
	keep, err := svc.CreateOrder("5", []models.OrderItem{mainCourse("m2")}, "", nil)
	require.NoError(t, err)

	svc.FreeTable("4")

	got, err := svc.Get(keep.ID)
	require.NoError(t, err)
	require.Equal(t, "5", got.TableNumber)
	require.False(t, got.Archived())
}

func TestFreedTableAcceptsANewOrder(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)
	svc.FreeTable("4")

	second, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m2")}, "", nil)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.Len(t, svc.List(), 2)
}

func TestPurgeHistoryRemovesOldOrders(t *testing.T) {
	svc, mirror, _ := newTestService(t)

	_, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)
	svc.FreeTable("4")

	cutoff := time.Now().Add(time.Hour)
	require.Equal(t, 1, svc.PurgeHistory(cutoff))
	require.Empty(t, svc.List())
	require.Len(t, mirror.purged, 1)

	// Nothing older than the cutoff left.
	require.Zero(t, svc.PurgeHistory(cutoff))
}

func TestFactoryResetWipesEverything(t *testing.T) {
	svc, mirror, _ := newTestService(t)

	_, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)

	svc.FactoryReset()
	require.Empty(t, svc.List())
	require.Equal(t, 1, mirror.erased)
}

func TestMutationsPublishOrdersChanged(t *testing.T) {
	svc, _, b := newTestService(t)

	events := 0
	b.Subscribe(bus.TopicOrdersChanged, func(bus.Topic) { events++ })

	order, err := svc.CreateOrder("4", []models.OrderItem{mainCourse("m1")}, "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, events)

	_, err = svc.ToggleItemCompletion(order.ID, 0, "")
	require.NoError(t, err)
	require.Equal(t, 2, events)

	svc.FreeTable("4")
	require.Equal(t, 3, events)
}
