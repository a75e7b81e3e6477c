package store

import (
	"encoding/json"
	"testing"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/models"

	"github.com/stretchr/testify/require"
)

// cappedBackend keeps values in memory and rejects payloads over its cap,
// the way a full disk would.
type cappedBackend struct {
	cap  int
	data map[string][]byte
}

func newCappedBackend(capBytes int) *cappedBackend {
	return &cappedBackend{cap: capBytes, data: map[string][]byte{}}
}

func (b *cappedBackend) Put(key string, data []byte) error {
	if b.cap > 0 && len(data) > b.cap {
		return ErrQuotaExceeded
	}
	b.data[key] = data
	return nil
}

func (b *cappedBackend) Get(key string) ([]byte, error) { return b.data[key], nil }
func (b *cappedBackend) Delete(key string) error        { delete(b.data, key); return nil }

func orderWithStatus(id string, status models.Status) models.Order {
	return models.Order{ID: id, TableNumber: "1", Status: status}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := New(newCappedBackend(0), bus.New())

	orders := []models.Order{orderWithStatus("a", models.StatusPending)}
	require.NoError(t, s.Write(KeyOrders, orders))

	var got []models.Order
	require.True(t, s.Read(KeyOrders, &got))
	require.Equal(t, orders, got)
}

func TestWriteQuotaEvictsDeliveredAndRetries(t *testing.T) {
	orders := []models.Order{
		orderWithStatus("live", models.StatusCooking),
		orderWithStatus("done-1", models.StatusDelivered),
		orderWithStatus("done-2", models.StatusDelivered),
	}
	live, err := json.Marshal([]models.Order{orders[0]})
	require.NoError(t, err)

	// Cap fits the live order alone, not the full list.
	backend := newCappedBackend(len(live))
	s := New(backend, bus.New())

	require.NoError(t, s.Write(KeyOrders, orders))

	var got []models.Order
	require.True(t, s.Read(KeyOrders, &got))
	require.Len(t, got, 1)
	require.Equal(t, "live", got[0].ID)
}

func TestWriteQuotaNothingEvictableDropsWrite(t *testing.T) {
	backend := newCappedBackend(4)
	b := bus.New()

	full := 0
	b.Subscribe(bus.TopicStorageFull, func(bus.Topic) { full++ })

	s := New(backend, b)
	backend.data[KeyOrders] = []byte(`[]`)

	orders := []models.Order{
		orderWithStatus("a", models.StatusCooking),
		orderWithStatus("b", models.StatusPending),
	}
	require.NoError(t, s.Write(KeyOrders, orders))
	require.Equal(t, 1, full)

	// The previously stored value is untouched.
	require.Equal(t, []byte(`[]`), backend.data[KeyOrders])
}

func TestWriteQuotaNonOrderKeyNeverEvicts(t *testing.T) {
	backend := newCappedBackend(2)
	b := bus.New()

	full := 0
	b.Subscribe(bus.TopicStorageFull, func(bus.Topic) { full++ })

	s := New(backend, b)
	require.NoError(t, s.Write(KeyMenu, []models.MenuItem{{ID: "m1", Name: "Pizza"}}))
	require.Equal(t, 1, full)
}

func TestReadMissingKeyReturnsFalse(t *testing.T) {
	s := New(newCappedBackend(0), bus.New())

	var got []models.Order
	require.False(t, s.Read(KeyOrders, &got))
	require.Nil(t, got)
}

func TestReadMalformedValueIsFailSoft(t *testing.T) {
	backend := newCappedBackend(0)
	backend.data[KeyOrders] = []byte(`{not json`)
	s := New(backend, bus.New())

	var got []models.Order
	require.False(t, s.Read(KeyOrders, &got))
	require.Nil(t, got)
}

func TestFileBackendRoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), 0)
	require.NoError(t, err)

	require.NoError(t, backend.Put("orders", []byte(`[1,2,3]`)))
	data, err := backend.Get("orders")
	require.NoError(t, err)
	require.Equal(t, []byte(`[1,2,3]`), data)

	require.NoError(t, backend.Delete("orders"))
	data, err = backend.Get("orders")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestFileBackendQuotaOverWholeDirectory(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), 16)
	require.NoError(t, err)

	require.NoError(t, backend.Put("a", []byte("12345678")))
	err = backend.Put("b", []byte("123456789012"))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	// Rewriting an existing key does not double-count it.
	require.NoError(t, backend.Put("a", []byte("1234567890123456")))
}

func TestFileBackendDeleteMissingKey(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, backend.Delete("absent"))
}
