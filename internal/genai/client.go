package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/cache"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"

	"github.com/rs/zerolog/log"
)

// Deterministic user-facing fallbacks. Every failure category maps to a
// distinct message but identical control flow: swallow and return the
// sentinel, never let the generator throw into calling code.
const (
	FallbackInvalidCredential = "AI assistant unavailable: the configured API key is not valid."
	FallbackQuotaExhausted    = "AI assistant unavailable: the daily quota is exhausted."
	FallbackPermissionDenied  = "AI assistant unavailable: access to the model was denied."
	FallbackModelUnavailable  = "AI assistant unavailable: the model is temporarily overloaded."
	FallbackNetwork           = "AI assistant unavailable: check the network connection."
)

// Client calls the generative text service. Its contract toward the rest of
// the core is "best-effort text/JSON generator": failures become fallback
// strings or empty results, never errors.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cache      *cache.RedisCache
	metrics    *metrics.Metrics
}

// NewClient creates a client for the configured endpoint. The cache may be
// nil or disabled; it only saves quota on repeated prompts.
func NewClient(cfg config.AIConfig, redisCache *cache.RedisCache, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		cache:      redisCache,
		metrics:    m,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces free text for the prompt. On any failure it returns the
// fallback message for the failure category instead of an error.
func (c *Client) Generate(ctx context.Context, prompt string) string {
	cacheKey := cache.GetPromptCacheKey(prompt)
	if c.cache != nil {
		var cached string
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil && cached != "" {
			return cached
		}
	}

	text, err := c.call(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		fallback := c.fallbackFor(err)
		log.Warn().Err(err).Msg("Generative call failed, returning fallback")
		return fallback
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, text, 24*time.Hour); err != nil {
			log.Debug().Err(err).Msg("Failed to cache generated text")
		}
	}
	return text
}

// GenerateList asks for a JSON array of strings and defensively parses the
// answer: markdown fences are stripped, and anything that is not an array
// becomes an empty result.
func (c *Client) GenerateList(ctx context.Context, prompt string) []string {
	text, err := c.call(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Generative list call failed, returning empty")
		return nil
	}

	var items []string
	if err := json.Unmarshal([]byte(StripFences(text)), &items); err != nil {
		log.Warn().Err(err).Msg("Generated answer is not a JSON array, returning empty")
		if c.metrics != nil {
			c.metrics.IncrementCounter(metrics.CounterAIFallbacks)
		}
		return nil
	}
	return items
}

// ExtractMenuFromImage performs OCR-style extraction of menu entries from a
// base64-encoded image. Failures of any kind yield an empty slice.
func (c *Client) ExtractMenuFromImage(ctx context.Context, imageBase64, mimeType string) []models.MenuItem {
	prompt := "Extract every dish from this menu photo as a JSON array of objects " +
		`with fields "name", "price", "category" and "description". Reply with the JSON array only.`

	text, err := c.call(ctx, generateRequest{
		Contents: []content{{Parts: []part{
			{Text: prompt},
			{InlineData: &inlineData{MimeType: mimeType, Data: imageBase64}},
		}}},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Menu extraction call failed, returning empty")
		return nil
	}

	var extracted []struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
	}
	if err := json.Unmarshal([]byte(StripFences(text)), &extracted); err != nil {
		log.Warn().Err(err).Msg("Extraction answer is not a JSON array, returning empty")
		return nil
	}

	items := make([]models.MenuItem, 0, len(extracted))
	for _, e := range extracted {
		if e.Name == "" {
			continue
		}
		category := models.Category(e.Category)
		if !models.ValidCategory(category) {
			category = models.CategoryMains
		}
		items = append(items, models.MenuItem{
			Name:        e.Name,
			Price:       e.Price,
			Category:    category,
			Description: e.Description,
		})
	}
	return items
}

type apiError struct {
	status int
	err    error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("generative service returned status %d", e.status)
}

func (c *Client) call(ctx context.Context, reqBody generateRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &apiError{err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &apiError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apiError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{status: resp.StatusCode}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &apiError{err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &apiError{err: fmt.Errorf("empty candidate list")}
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

func (c *Client) fallbackFor(err error) string {
	if c.metrics != nil {
		c.metrics.IncrementCounter(metrics.CounterAIFallbacks)
	}
	api, ok := err.(*apiError)
	if !ok {
		return FallbackNetwork
	}
	switch api.status {
	case http.StatusUnauthorized, http.StatusBadRequest:
		return FallbackInvalidCredential
	case http.StatusTooManyRequests:
		return FallbackQuotaExhausted
	case http.StatusForbidden:
		return FallbackPermissionDenied
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return FallbackModelUnavailable
	default:
		return FallbackNetwork
	}
}

// StripFences removes a surrounding markdown code fence from a model answer.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
