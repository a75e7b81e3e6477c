package services

import (
	"context"
	"sync"
	"time"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/metacache"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/search"
	"github.com/maxsviluppo/ristosync/internal/store"
	"github.com/maxsviluppo/ristosync/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoItems rejects order creation with an empty item list.
	ErrNoItems = errors.New("order needs at least one item")
	// ErrOrderNotFound reports an unknown order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBadItemIndex reports an item index outside the order.
	ErrBadItemIndex = errors.New("item index out of range")
)

// OrderService is the mutation API over the shared order list. Every
// operation reads the full list, computes the new list, commits it to the
// local store, publishes orders.changed, and mirrors the changed orders to
// the cloud asynchronously. A mutex serializes mutations: one logical
// writer per device, concurrency only exists across devices.
type OrderService struct {
	mu       sync.Mutex
	store    *store.Store
	meta     *metacache.Cache
	bus      *bus.Bus
	mirror   Mirror
	settings SettingsProvider
	search   *search.ElasticClient
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	tenantID string
}

// NewOrderService creates the order mutation service.
func NewOrderService(
	localStore *store.Store,
	meta *metacache.Cache,
	b *bus.Bus,
	mirror Mirror,
	settings SettingsProvider,
	elasticClient *search.ElasticClient,
	m *metrics.Metrics,
	tracer tracing.Tracer,
	tenantID string,
) *OrderService {
	return &OrderService{
		store:    localStore,
		meta:     meta,
		bus:      b,
		mirror:   mirror,
		settings: settings,
		search:   elasticClient,
		metrics:  m,
		tracer:   tracer,
		tenantID: tenantID,
	}
}

// List returns every order currently in the local store.
func (s *OrderService) List() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrders()
}

// Get returns one order by id.
func (s *OrderService) Get(orderID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.loadOrders() {
		if o.ID == orderID {
			return o, nil
		}
	}
	return models.Order{}, ErrOrderNotFound
}

// CreateOrder opens a new order for a table, or merges the items into the
// table's already-open order instead of creating a second row.
func (s *OrderService) CreateOrder(table string, items []models.OrderItem, staff string, delivery *models.DeliveryInfo) (models.Order, error) {
	if len(items) == 0 {
		return models.Order{}, ErrNoItems
	}

	txn := s.tracer.StartTransaction("create-order")
	defer s.tracer.EndTransaction(txn)

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadOrders()
	for i, existing := range orders {
		if existing.TableNumber == table && !existing.Archived() {
			merged := s.mergeInto(existing, items)
			orders[i] = merged
			s.commit(orders, merged)
			return merged, nil
		}
	}

	now := time.Now()
	prepared := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		prepared = append(prepared, s.prepareItem(it, false))
	}

	order := models.Order{
		ID:           uuid.New().String(),
		TableNumber:  table,
		Items:        prepared,
		Status:       models.DeriveStatus(prepared),
		CreatedAt:    now,
		LastActivity: now,
		Staff:        staff,
		Delivery:     delivery,
	}

	orders = append(orders, order)
	s.commit(orders, order)
	s.metrics.IncrementCounter(metrics.CounterOrdersCreated)

	log.Info().
		Str("order_id", order.ID).
		Str("table", table).
		Int("items", len(order.Items)).
		Msg("Order created")
	return order, nil
}

// MergeItems adds items to an already-placed order. Matching lines (same
// menu item, identical notes) gain quantity and lose their done flags; the
// kitchen has to look at them again.
func (s *OrderService) MergeItems(orderID string, newItems []models.OrderItem) (models.Order, error) {
	if len(newItems) == 0 {
		return models.Order{}, ErrNoItems
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadOrders()
	for i, o := range orders {
		if o.ID == orderID {
			merged := s.mergeInto(o, newItems)
			orders[i] = merged
			s.commit(orders, merged)
			return merged, nil
		}
	}
	return models.Order{}, ErrOrderNotFound
}

func (s *OrderService) mergeInto(order models.Order, newItems []models.OrderItem) models.Order {
	for _, incoming := range newItems {
		qty := incoming.Quantity
		if qty <= 0 {
			qty = 1
		}
		matched := false
		for j := range order.Items {
			if order.Items[j].SameLine(incoming) {
				order.Items[j].Quantity += qty
				order.Items[j].Completed = false
				order.Items[j].Served = false
				order.Items[j].CompletedParts = nil
				order.Items[j].ServedParts = nil
				order.Items[j].IsAddedLater = true
				matched = true
				break
			}
		}
		if !matched {
			prepared := s.prepareItem(incoming, true)
			prepared.Quantity = qty
			order.Items = append(order.Items, prepared)
		}
	}

	// New items mean the kitchen is not finished, whatever the board said.
	if order.Status == models.StatusReady || order.Status == models.StatusDelivered {
		order.Status = models.StatusPending
	} else {
		order.Status = models.DeriveStatus(order.Items)
	}
	order.LastActivity = time.Now()
	return order
}

// ToggleItemCompletion flips one line's kitchen-done flag, or one sub-part
// of a combo line. The order status is rederived unless it is DELIVERED.
func (s *OrderService) ToggleItemCompletion(orderID string, itemIndex int, subItemID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateItem(orderID, itemIndex, func(item *models.OrderItem) {
		if subItemID != "" && item.MenuItem.IsCombo() {
			item.CompletedParts = models.ToggleSet(item.CompletedParts, subItemID)
			item.Completed = models.ItemCompleted(*item)
		} else {
			item.Completed = !item.Completed
		}
	}, func(order *models.Order) {
		if order.Status != models.StatusDelivered {
			order.Status = models.DeriveStatus(order.Items)
		}
	})
}

// ServeItem marks one line (or one combo sub-part) as delivered to the
// table. When the whole order is served while READY or COOKING the status
// drops back to PENDING: service is complete, the kitchen cycle is over.
func (s *OrderService) ServeItem(orderID string, itemIndex int, subItemID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateItem(orderID, itemIndex, func(item *models.OrderItem) {
		if subItemID != "" && item.MenuItem.IsCombo() {
			item.ServedParts = models.AddToSet(item.ServedParts, subItemID)
			item.Served = models.ItemServed(*item)
		} else {
			item.Served = true
		}
	}, func(order *models.Order) {
		if models.AllServed(order.Items) &&
			(order.Status == models.StatusReady || order.Status == models.StatusCooking) {
			order.Status = models.StatusPending
		}
	})
}

// AdvanceStatus moves the order exactly one step forward. It never skips,
// never regresses, and leaves item flags alone: this is the staff override
// independent of kitchen completion.
func (s *OrderService) AdvanceStatus(orderID string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadOrders()
	for i, o := range orders {
		if o.ID == orderID {
			if o.Status == models.StatusDelivered {
				return o, nil
			}
			orders[i].Status = o.Status.Next()
			orders[i].LastActivity = time.Now()
			s.commit(orders, orders[i])
			return orders[i], nil
		}
	}
	return models.Order{}, ErrOrderNotFound
}

// FreeTable archives every order on the table: the table identifier gets
// the archival suffix and the status is forced to DELIVERED. A soft
// delete, not a physical one; history views keep the receipt. Calling it
// again with no new order is a no-op.
func (s *OrderService) FreeTable(table string) int {
	txn := s.tracer.StartTransaction("free-table")
	defer s.tracer.EndTransaction(txn)

	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadOrders()
	var archived []models.Order
	for i, o := range orders {
		if o.TableNumber != table || o.Archived() {
			continue
		}
		orders[i].TableNumber = table + models.HistorySuffix
		orders[i].Status = models.StatusDelivered
		orders[i].LastActivity = time.Now()
		archived = append(archived, orders[i])
	}
	if len(archived) == 0 {
		return 0
	}

	s.commit(orders, archived...)
	s.metrics.IncrementCounterBy(metrics.CounterOrdersArchived, int64(len(archived)))

	if s.search != nil {
		for _, receipt := range archived {
			receipt := receipt
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := s.search.IndexReceipt(ctx, s.tenantID, receipt); err != nil {
					log.Warn().Err(err).Str("order_id", receipt.ID).Msg("Failed to index receipt")
				}
			}()
		}
	}

	log.Info().Str("table", table).Int("archived", len(archived)).Msg("Table freed")
	return len(archived)
}

// PurgeHistory deletes orders created before the given date. Together with
// factory reset this is the only operation that truly deletes rows.
func (s *OrderService) PurgeHistory(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := s.loadOrders()
	kept := orders[:0]
	removed := 0
	for _, o := range orders {
		if o.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	if removed == 0 {
		return 0
	}

	s.commit(kept)
	s.mirror.PurgeOrders(before)
	log.Info().Int("removed", removed).Time("before", before).Msg("Order history purged")
	return removed
}

// FactoryReset wipes the order list and its metadata cache, locally and
// remotely.
func (s *OrderService) FactoryReset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(store.KeyOrders); err != nil {
		log.Error().Err(err).Msg("Failed to delete orders on factory reset")
	}
	if err := s.store.Delete(store.KeyOrderMeta); err != nil {
		log.Error().Err(err).Msg("Failed to delete order metadata on factory reset")
	}
	s.bus.Publish(bus.TopicOrdersChanged)
	s.mirror.EraseOrders()
	log.Warn().Msg("Factory reset executed")
}

// mutateItem applies fn to one line of one order, then lets finish adjust
// the order status, then commits.
func (s *OrderService) mutateItem(orderID string, itemIndex int, fn func(*models.OrderItem), finish func(*models.Order)) (models.Order, error) {
	orders := s.loadOrders()
	for i, o := range orders {
		if o.ID != orderID {
			continue
		}
		if itemIndex < 0 || itemIndex >= len(o.Items) {
			return models.Order{}, ErrBadItemIndex
		}
		fn(&orders[i].Items[itemIndex])
		finish(&orders[i])
		orders[i].LastActivity = time.Now()
		s.commit(orders, orders[i])
		return orders[i], nil
	}
	return models.Order{}, ErrOrderNotFound
}

// prepareItem snapshots a line for storage. Lines routed to the dining
// room need no kitchen work and start out completed.
func (s *OrderService) prepareItem(it models.OrderItem, addedLater bool) models.OrderItem {
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	dept := s.settings.Current().DepartmentForItem(it.MenuItem)
	it.Completed = dept == models.DepartmentDiningRoom
	it.Served = false
	it.CompletedParts = nil
	it.ServedParts = nil
	it.IsAddedLater = addedLater
	return it
}

func (s *OrderService) loadOrders() []models.Order {
	var orders []models.Order
	s.store.Read(store.KeyOrders, &orders)
	return orders
}

// commit writes the full list, records metadata, publishes the change and
// mirrors the touched orders. The local write is the source of truth; the
// mirror is best effort.
func (s *OrderService) commit(orders []models.Order, changed ...models.Order) {
	s.meta.Record(orders)
	if err := s.store.Write(store.KeyOrders, orders); err != nil {
		log.Error().Err(err).Msg("Failed to persist orders")
	}
	s.bus.Publish(bus.TopicOrdersChanged)
	if len(changed) > 0 {
		s.mirror.PushOrders(changed...)
	}
}
