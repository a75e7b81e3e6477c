package metacache

import (
	"sync"

	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"
)

// Entry holds the order fields the remote schema cannot represent: delivery
// metadata and per-line free-text notes (indexed by line position).
type Entry struct {
	Delivery  *models.DeliveryInfo `json:"delivery,omitempty"`
	ItemNotes [][]string           `json:"itemNotes,omitempty"`
	Staff     string               `json:"staff,omitempty"`
}

// Cache preserves extended order fields across cloud pulls, keyed by order
// id. Entries are never expired; a pull that drops a field restores it from
// here, and an incoming non-empty value always wins over the cached one.
type Cache struct {
	mu    sync.Mutex
	store *store.Store
}

// New creates a cache persisted through the local store.
func New(s *store.Store) *Cache {
	return &Cache{store: s}
}

func (c *Cache) load() map[string]Entry {
	entries := make(map[string]Entry)
	c.store.Read(store.KeyOrderMeta, &entries)
	return entries
}

// Record upserts a cache entry for every order carrying extended fields.
// It never removes entries: an order that lost its metadata in transit must
// still be restorable on the next pull.
func (c *Cache) Record(orders []models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	changed := false
	for _, o := range orders {
		entry, exists := entries[o.ID]
		if o.Delivery != nil && !o.Delivery.Empty() {
			entry.Delivery = o.Delivery
		}
		if notes := collectNotes(o.Items); notes != nil {
			entry.ItemNotes = notes
		}
		if o.Staff != "" {
			entry.Staff = o.Staff
		}
		if entry.Delivery == nil && entry.ItemNotes == nil && entry.Staff == "" {
			continue
		}
		if !exists || !equalEntry(entries[o.ID], entry) {
			entries[o.ID] = entry
			changed = true
		}
	}
	if changed {
		c.store.Write(store.KeyOrderMeta, entries)
	}
}

// Restore fills extended fields missing from incoming orders. The cache is a
// fallback, never an override: any non-empty incoming value is kept as is.
func (c *Cache) Restore(orders []models.Order) []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	for i := range orders {
		entry, ok := entries[orders[i].ID]
		if !ok {
			continue
		}
		if (orders[i].Delivery == nil || orders[i].Delivery.Empty()) && entry.Delivery != nil {
			delivery := *entry.Delivery
			orders[i].Delivery = &delivery
		}
		if orders[i].Staff == "" && entry.Staff != "" {
			orders[i].Staff = entry.Staff
		}
		for j := range orders[i].Items {
			if len(orders[i].Items[j].Notes) == 0 && j < len(entry.ItemNotes) {
				orders[i].Items[j].Notes = entry.ItemNotes[j]
			}
		}
	}
	return orders
}

func collectNotes(items []models.OrderItem) [][]string {
	any := false
	notes := make([][]string, len(items))
	for i, it := range items {
		if len(it.Notes) > 0 {
			notes[i] = it.Notes
			any = true
		}
	}
	if !any {
		return nil
	}
	return notes
}

func equalEntry(a, b Entry) bool {
	if (a.Delivery == nil) != (b.Delivery == nil) {
		return false
	}
	if a.Delivery != nil && *a.Delivery != *b.Delivery {
		return false
	}
	if a.Staff != b.Staff || len(a.ItemNotes) != len(b.ItemNotes) {
		return false
	}
	for i := range a.ItemNotes {
		if len(a.ItemNotes[i]) != len(b.ItemNotes[i]) {
			return false
		}
		for j := range a.ItemNotes[i] {
			if a.ItemNotes[i][j] != b.ItemNotes[i][j] {
				return false
			}
		}
	}
	return true
}
