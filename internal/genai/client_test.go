package genai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/metrics"
	"github.com/maxsviluppo/ristosync/internal/models"

	"github.com/stretchr/testify/require"
)

func candidateResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.AIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, nil, metrics.NewMetrics())
}

func TestGenerateReturnsCandidateText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, candidateResponse("  Ciao!  "))
	})

	require.Equal(t, "Ciao!", c.Generate(context.Background(), "greet"))
}

func TestGenerateFallbackByStatusCode(t *testing.T) {
	cases := []struct {
		status   int
		fallback string
	}{
		{http.StatusUnauthorized, FallbackInvalidCredential},
		{http.StatusBadRequest, FallbackInvalidCredential},
		{http.StatusTooManyRequests, FallbackQuotaExhausted},
		{http.StatusForbidden, FallbackPermissionDenied},
		{http.StatusServiceUnavailable, FallbackModelUnavailable},
		{http.StatusInternalServerError, FallbackModelUnavailable},
		{http.StatusTeapot, FallbackNetwork},
	}

	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		require.Equal(t, tc.fallback, c.Generate(context.Background(), "x"), "status %d", tc.status)
	}
}

func TestGenerateUnreachableServiceIsNetworkFallback(t *testing.T) {
	c := NewClient(config.AIConfig{
		BaseURL: "http://127.0.0.1:1",
		Model:   "test-model",
	}, nil, metrics.NewMetrics())

	require.Equal(t, FallbackNetwork, c.Generate(context.Background(), "x"))
}

func TestGenerateCountsFallbacks(t *testing.T) {
	m := metrics.NewMetrics()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(config.AIConfig{BaseURL: server.URL, Model: "m"}, nil, m)
	c.Generate(context.Background(), "x")

	require.Equal(t, int64(1), m.GetCounters()[metrics.CounterAIFallbacks])
}

func TestGenerateListStripsFences(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse("```json\n[\"a\",\"b\"]\n```"))
	})

	require.Equal(t, []string{"a", "b"}, c.GenerateList(context.Background(), "list"))
}

func TestGenerateListNonArrayAnswerIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse("sorry, I cannot do that"))
	})

	require.Nil(t, c.GenerateList(context.Background(), "list"))
}

func TestExtractMenuFromImage(t *testing.T) {
	answer := `[
		{"name":"Margherita","price":8.5,"category":"pizzas","description":"Tomato and mozzarella"},
		{"name":"Mystery","price":5,"category":"unknown-category"},
		{"name":"","price":3,"category":"drinks"}
	]`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, candidateResponse(answer))
	})

	items := c.ExtractMenuFromImage(context.Background(), "aW1n", "image/png")
	require.Len(t, items, 2)
	require.Equal(t, models.CategoryPizzas, items[0].Category)
	require.Equal(t, 8.5, items[0].Price)
	// Unknown categories fall back to mains instead of being dropped.
	require.Equal(t, models.CategoryMains, items[1].Category)
}

func TestExtractMenuFromImageFailureIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	require.Nil(t, c.ExtractMenuFromImage(context.Background(), "aW1n", "image/png"))
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `["a"]`, StripFences("```json\n[\"a\"]\n```"))
	require.Equal(t, `["a"]`, StripFences("```\n[\"a\"]\n```"))
	require.Equal(t, `["a"]`, StripFences(`["a"]`))
	require.Equal(t, "plain text", StripFences("  plain text  "))
}
