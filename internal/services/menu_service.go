package services

import (
	"context"
	"sync"
	"time"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/cache"
	"github.com/maxsviluppo/ristosync/internal/genai"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCategory = errors.New("invalid menu category")
	ErrItemNotFound    = errors.New("menu item not found")
)

const menuCacheTTL = 5 * time.Minute

// MenuService owns the menu catalogue. Writes go to the local store first,
// then fire-and-forget to the remote backend.
type MenuService struct {
	mu       sync.Mutex
	store    *store.Store
	bus      *bus.Bus
	mirror   Mirror
	cache    *cache.RedisCache
	ai       *genai.Client
	tenantID string
}

// NewMenuService creates the menu service.
func NewMenuService(localStore *store.Store, b *bus.Bus, mirror Mirror, redisCache *cache.RedisCache, ai *genai.Client, tenantID string) *MenuService {
	return &MenuService{
		store:    localStore,
		bus:      b,
		mirror:   mirror,
		cache:    redisCache,
		ai:       ai,
		tenantID: tenantID,
	}
}

// List returns all menu items, read through the cache when available.
func (s *MenuService) List(ctx context.Context) []models.MenuItem {
	var items []models.MenuItem
	if s.cache != nil {
		if err := s.cache.Get(ctx, cache.GetMenuCacheKey(s.tenantID), &items); err == nil {
			return items
		}
	}

	s.mu.Lock()
	s.store.Read(store.KeyMenu, &items)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.GetMenuCacheKey(s.tenantID), items, menuCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache menu")
		}
	}
	return items
}

// Save inserts or updates a menu item. A blank ID gets a fresh one.
func (s *MenuService) Save(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	if !models.ValidCategory(item.Category) {
		return models.MenuItem{}, ErrInvalidCategory
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	s.mu.Lock()
	var items []models.MenuItem
	s.store.Read(store.KeyMenu, &items)

	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	err := s.store.Write(store.KeyMenu, items)
	s.mu.Unlock()

	if err != nil {
		return models.MenuItem{}, errors.Wrap(err, "failed to persist menu")
	}

	s.invalidateCache(ctx)
	s.bus.Publish(bus.TopicMenuChanged)
	s.mirror.PushMenuItem(item)
	return item, nil
}

// Delete removes a menu item by id.
func (s *MenuService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	var items []models.MenuItem
	s.store.Read(store.KeyMenu, &items)

	kept := items[:0]
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	err := s.store.Write(store.KeyMenu, kept)
	s.mu.Unlock()

	if err != nil {
		return errors.Wrap(err, "failed to persist menu")
	}

	s.invalidateCache(ctx)
	s.bus.Publish(bus.TopicMenuChanged)
	s.mirror.RemoveMenuItem(id)
	return nil
}

// ImportFromImage extracts menu items from a photographed menu and saves
// every recognized item. Items the model could not categorize are skipped.
func (s *MenuService) ImportFromImage(ctx context.Context, imageBase64, mimeType string) []models.MenuItem {
	extracted := s.ai.ExtractMenuFromImage(ctx, imageBase64, mimeType)

	var saved []models.MenuItem
	for _, item := range extracted {
		result, err := s.Save(ctx, item)
		if err != nil {
			log.Warn().Err(err).Str("name", item.Name).Msg("Skipping extracted menu item")
			continue
		}
		saved = append(saved, result)
	}
	return saved
}

func (s *MenuService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.GetMenuCacheKey(s.tenantID)); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate menu cache")
	}
}
