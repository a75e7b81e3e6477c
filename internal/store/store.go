package store

import (
	"encoding/json"
	"sync"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Logical keys, one per concern.
const (
	KeyOrders       = "orders"
	KeyMenu         = "menu"
	KeySettings     = "settings"
	KeyWaiter       = "waiter"
	KeyOrderMeta    = "order_meta"
	KeyAICredential = "ai_credential"
	KeyTableCount   = "table_count"
	KeyPromotions   = "promotions"
	KeyAutomations  = "automations"
	KeySocialPosts  = "social_posts"
)

// ErrQuotaExceeded is returned by backends when a value does not fit the
// configured storage quota.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// Backend persists raw bytes per key. The file backend is the production
// implementation; tests substitute a failing one.
type Backend interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// Store is the durable local key-value store every mutation commits to
// before anything is mirrored to the cloud. Writes are quota-safe: a
// capacity failure on the orders key evicts DELIVERED orders and retries
// once, and an unrecoverable failure is swallowed and surfaced only as a
// storage.full event, never as an error to the caller.
type Store struct {
	mu      sync.Mutex
	backend Backend
	bus     *bus.Bus
}

// New creates a store over the given backend.
func New(backend Backend, b *bus.Bus) *Store {
	return &Store{backend: backend, bus: b}
}

// Write persists value under key. It never returns an error for capacity
// failures; those are recovered or swallowed per the store contract. Only
// marshalling bugs and non-capacity backend faults are reported.
func (s *Store) Write(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "store: marshal value")
	}

	err = s.backend.Put(key, data)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		return errors.Wrapf(err, "store: write %q", key)
	}

	if key == KeyOrders {
		if retry, ok := evictDelivered(data); ok {
			if err := s.backend.Put(key, retry); err == nil {
				log.Warn().Str("key", key).Msg("Storage quota hit, evicted delivered orders and retried")
				return nil
			}
		}
	}

	// Out of room and nothing left to evict. Drop the write; previously
	// stored data is untouched.
	log.Error().Str("key", key).Msg("Storage quota exceeded, write dropped")
	if s.bus != nil {
		s.bus.Publish(bus.TopicStorageFull)
	}
	return nil
}

// Read unmarshals the value stored under key into out. Absent or malformed
// data leaves out at its zero value and returns false; it never fails hard.
func (s *Store) Read(key string, out interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Get(key)
	if err != nil || len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("Malformed stored value, treating as empty")
		return false
	}
	return true
}

// Delete removes the value stored under key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrapf(s.backend.Delete(key), "store: delete %q", key)
}

// evictDelivered drops orders in terminal status from a marshalled order
// list and reports whether anything was evicted.
func evictDelivered(data []byte) ([]byte, bool) {
	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, false
	}
	kept := orders[:0]
	for _, o := range orders {
		if o.Status != models.StatusDelivered {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(orders) {
		return nil, false
	}
	retry, err := json.Marshal(kept)
	if err != nil {
		return nil, false
	}
	return retry, true
}
