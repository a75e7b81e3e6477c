package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maxsviluppo/ristosync/internal/bus"
	"github.com/maxsviluppo/ristosync/internal/genai"
	"github.com/maxsviluppo/ristosync/internal/models"
	"github.com/maxsviluppo/ristosync/internal/store"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MarketingService owns promotions, automations and social post drafts.
// Same commit discipline as orders: local store first, event, then the
// fire-and-forget mirror.
type MarketingService struct {
	mu     sync.Mutex
	store  *store.Store
	bus    *bus.Bus
	mirror Mirror
	ai     *genai.Client
}

// NewMarketingService creates the marketing service.
func NewMarketingService(localStore *store.Store, b *bus.Bus, mirror Mirror, ai *genai.Client) *MarketingService {
	return &MarketingService{store: localStore, bus: b, mirror: mirror, ai: ai}
}

// Promotions returns all stored promotions.
func (s *MarketingService) Promotions() []models.Promotion {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Promotion
	s.store.Read(store.KeyPromotions, &out)
	return out
}

// SavePromotion inserts or updates a promotion.
func (s *MarketingService) SavePromotion(p models.Promotion) (models.Promotion, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	var all []models.Promotion
	s.store.Read(store.KeyPromotions, &all)
	replaced := false
	for i := range all {
		if all[i].ID == p.ID {
			all[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, p)
	}
	err := s.store.Write(store.KeyPromotions, all)
	s.mu.Unlock()

	if err != nil {
		return models.Promotion{}, errors.Wrap(err, "failed to persist promotions")
	}

	s.bus.Publish(bus.TopicMarketingChanged)
	s.mirror.PushPromotion(p)
	return p, nil
}

// Automations returns all stored automations.
func (s *MarketingService) Automations() []models.Automation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Automation
	s.store.Read(store.KeyAutomations, &out)
	return out
}

// SaveAutomation inserts or updates an automation.
func (s *MarketingService) SaveAutomation(a models.Automation) (models.Automation, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
		a.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	var all []models.Automation
	s.store.Read(store.KeyAutomations, &all)
	replaced := false
	for i := range all {
		if all[i].ID == a.ID {
			all[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, a)
	}
	err := s.store.Write(store.KeyAutomations, all)
	s.mu.Unlock()

	if err != nil {
		return models.Automation{}, errors.Wrap(err, "failed to persist automations")
	}

	s.bus.Publish(bus.TopicMarketingChanged)
	s.mirror.PushAutomation(a)
	return a, nil
}

// SocialPosts returns all stored social post drafts.
func (s *MarketingService) SocialPosts() []models.SocialPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SocialPost
	s.store.Read(store.KeySocialPosts, &out)
	return out
}

// SaveSocialPost inserts or updates a social post draft.
func (s *MarketingService) SaveSocialPost(p models.SocialPost) (models.SocialPost, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
		p.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	var all []models.SocialPost
	s.store.Read(store.KeySocialPosts, &all)
	replaced := false
	for i := range all {
		if all[i].ID == p.ID {
			all[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, p)
	}
	err := s.store.Write(store.KeySocialPosts, all)
	s.mu.Unlock()

	if err != nil {
		return models.SocialPost{}, errors.Wrap(err, "failed to persist social posts")
	}

	s.bus.Publish(bus.TopicMarketingChanged)
	s.mirror.PushSocialPost(p)
	return p, nil
}

// DraftPost asks the generative service for post copy about a topic and
// stores the result as an unpublished draft.
func (s *MarketingService) DraftPost(ctx context.Context, restaurantName, channel, topic string) (models.SocialPost, error) {
	prompt := fmt.Sprintf(
		"Write a short %s post for the restaurant %q about: %s. Plain text, no hashtags beyond two.",
		channel, restaurantName, topic,
	)
	body := s.ai.Generate(ctx, prompt)

	return s.SaveSocialPost(models.SocialPost{
		Channel: channel,
		Body:    body,
	})
}

// PromotionIdeas asks the generative service for promotion titles based on
// the current menu.
func (s *MarketingService) PromotionIdeas(ctx context.Context, menu []models.MenuItem) []string {
	names := make([]string, 0, len(menu))
	for _, item := range menu {
		names = append(names, item.Name)
	}
	prompt := fmt.Sprintf(
		"Given this restaurant menu: %v. Suggest 5 short promotion titles. Reply with a JSON array of strings.",
		names,
	)
	return s.ai.GenerateList(ctx, prompt)
}
