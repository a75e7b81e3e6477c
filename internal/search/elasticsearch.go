package search

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient indexes archived orders for the receipt-history and
// per-day reporting views.
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexReceipt indexes one archived order. Called when a table is freed;
// the order id doubles as the document id, so re-archiving is idempotent.
func (c *ElasticClient) IndexReceipt(ctx context.Context, tenantID string, order models.Order) error {
	log.Info().Str("order_id", order.ID).Msg("indexing receipt")

	var total float64
	var lines []map[string]interface{}
	for _, it := range order.Items {
		total += it.MenuItem.Price * float64(it.Quantity)
		lines = append(lines, map[string]interface{}{
			"menu_item_id": it.MenuItem.ID,
			"name":         it.MenuItem.Name,
			"category":     it.MenuItem.Category,
			"price":        it.MenuItem.Price,
			"quantity":     it.Quantity,
		})
	}

	receiptDoc := map[string]interface{}{
		"id":         order.ID,
		"tenant_id":  tenantID,
		"table":      order.LiveTable(),
		"staff":      order.Staff,
		"total":      total,
		"items":      lines,
		"created_at": order.CreatedAt,
		"closed_at":  order.LastActivity,
	}

	docJson, err := json.Marshal(receiptDoc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal receipt document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: order.ID,
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	log.Info().Str("order_id", order.ID).Msg("receipt indexed successfully")
	return nil
}

// DailyTotals returns the revenue total and receipt count for one day.
func (c *ElasticClient) DailyTotals(ctx context.Context, tenantID string, day time.Time) (float64, int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	query := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"tenant_id": tenantID}},
					map[string]interface{}{"range": map[string]interface{}{
						"closed_at": map[string]interface{}{
							"gte": start.Format(time.RFC3339),
							"lt":  start.Add(24 * time.Hour).Format(time.RFC3339),
						},
					}},
				},
			},
		},
		"aggs": map[string]interface{}{
			"revenue": map[string]interface{}{
				"sum": map[string]interface{}{"field": "total"},
			},
		},
	}

	result, err := c.search(ctx, query)
	if err != nil {
		return 0, 0, err
	}

	var revenue float64
	var count int64
	if aggs, ok := result["aggregations"].(map[string]interface{}); ok {
		if rev, ok := aggs["revenue"].(map[string]interface{}); ok {
			if v, ok := rev["value"].(float64); ok {
				revenue = v
			}
		}
	}
	if hits, ok := result["hits"].(map[string]interface{}); ok {
		if tot, ok := hits["total"].(map[string]interface{}); ok {
			if v, ok := tot["value"].(float64); ok {
				count = int64(v)
			}
		}
	}
	return revenue, count, nil
}

// SearchReceipts runs a free-text query over archived receipts.
func (c *ElasticClient) SearchReceipts(ctx context.Context, tenantID, text string) ([]map[string]interface{}, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"tenant_id": tenantID}},
				},
				"must": []interface{}{
					map[string]interface{}{"multi_match": map[string]interface{}{
						"query":  text,
						"fields": []string{"table", "staff", "items.name"},
					}},
				},
			},
		},
	}

	result, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected search result format")
	}
	hitsArray, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, errors.New("unexpected hits format")
	}

	var docs []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		docs = append(docs, source)
	}
	return docs, nil
}

func (c *ElasticClient) search(ctx context.Context, query map[string]interface{}) (map[string]interface{}, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return nil, errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return nil, errors.Errorf("Elasticsearch search error: %v", e)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}
	return result, nil
}
