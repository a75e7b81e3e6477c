package services

import (
	"sync"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"

	"github.com/rs/zerolog/log"
)

// SettingsService owns the whole-object settings blob. It is read merged
// over the hardcoded defaults (a partial payload never replaces the whole
// object) and always rewritten in full, locally and remotely.
type SettingsService struct {
	mu     sync.Mutex
	store  *store.Store
	bus    *bus.Bus
	mirror Mirror
}

// NewSettingsService creates the settings service.
func NewSettingsService(localStore *store.Store, b *bus.Bus, mirror Mirror) *SettingsService {
	return &SettingsService{store: localStore, bus: b, mirror: mirror}
}

// Current returns the stored settings merged field-by-field over the
// defaults.
func (s *SettingsService) Current() models.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored models.AppSettings
	s.store.Read(store.KeySettings, &stored)
	return models.MergeSettings(models.DefaultSettings(), stored)
}

// Save rewrites the entire settings object, locally and remotely.
func (s *SettingsService) Save(settings models.AppSettings) models.AppSettings {
	s.mu.Lock()
	merged := models.MergeSettings(models.DefaultSettings(), settings)
	if err := s.store.Write(store.KeySettings, merged); err != nil {
		log.Error().Err(err).Msg("Failed to persist settings")
	}
	if err := s.store.Write(store.KeyTableCount, merged.TableCount); err != nil {
		log.Error().Err(err).Msg("Failed to persist table count")
	}
	credential := s.aiCredential()
	s.mu.Unlock()

	s.bus.Publish(bus.TopicSettingsChanged)
	s.mirror.PushSettings(merged, credential)
	return merged
}

// AICredential returns the stored generative-service credential.
func (s *SettingsService) AICredential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiCredential()
}

func (s *SettingsService) aiCredential() string {
	var credential string
	s.store.Read(store.KeyAICredential, &credential)
	return credential
}

// SetAICredential stores the credential and mirrors it along with the
// current settings blob.
func (s *SettingsService) SetAICredential(credential string) {
	s.mu.Lock()
	if err := s.store.Write(store.KeyAICredential, credential); err != nil {
		log.Error().Err(err).Msg("Failed to persist AI credential")
	}
	var stored models.AppSettings
	s.store.Read(store.KeySettings, &stored)
	merged := models.MergeSettings(models.DefaultSettings(), stored)
	s.mu.Unlock()

	s.mirror.PushSettings(merged, credential)
}

// Waiter returns this device's waiter identity. Device-local, never
// mirrored.
func (s *SettingsService) Waiter() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var waiter string
	s.store.Read(store.KeyWaiter, &waiter)
	return waiter
}

// SetWaiter stores this device's waiter identity.
func (s *SettingsService) SetWaiter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Write(store.KeyWaiter, name); err != nil {
		log.Error().Err(err).Msg("Failed to persist waiter identity")
	}
}
