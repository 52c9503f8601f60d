package search

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"example.com/backstage/services/tenders/config"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventDocument is the reporting projection of an event
type EventDocument struct {
	ID             string    `json:"id"`
	ProjectID      uint      `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	FrameworkID    string    `json:"framework_id"`
	LotID          string    `json:"lot_id"`
	Title          string    `json:"title"`
	EventType      string    `json:"event_type"`
	Status         string    `json:"status"`
	EventSupportID string    `json:"event_support_id,omitempty"`
	AssessmentID   *uint     `json:"assessment_id,omitempty"`
	SupplierCount  int       `json:"supplier_count"`
	UpdatedAt      time.Time `json:"updated_at"`
	IndexedAt      time.Time `json:"indexed_at"`
}

// Query filters the event projection. Empty fields are ignored.
type Query struct {
	Text      string
	ProjectID uint
	EventType string
	Status    string
	From      int
	Size      int
}

// Index stores and queries event projections
type Index interface {
	IndexEvent(ctx context.Context, doc EventDocument) error
	SearchEvents(ctx context.Context, q Query) ([]EventDocument, error)
}

// ElasticClient is an Elasticsearch backed Index
type ElasticClient struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, index: IndexName(cfg)}, nil
}

// IndexName joins the configured prefix and index
func IndexName(cfg config.ElasticConfig) string {
	if cfg.Prefix == "" {
		return cfg.Index
	}
	return cfg.Prefix + "-" + cfg.Index
}

// IndexEvent upserts the projection under its public event id
func (c *ElasticClient) IndexEvent(ctx context.Context, doc EventDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("Elasticsearch index error: %s", res.String())
	}

	log.Debug().Str("event_id", doc.ID).Msg("event indexed")
	return nil
}

// SearchEvents runs a bool query built from q
func (c *ElasticClient) SearchEvents(ctx context.Context, q Query) ([]EventDocument, error) {
	body, err := json.Marshal(BuildQuery(q))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.Errorf("Elasticsearch search error: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source EventDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]EventDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// BuildQuery renders q as an Elasticsearch request body
func BuildQuery(q Query) map[string]interface{} {
	var must, filter []interface{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"title^2", "project_name", "event_support_id"},
			},
		})
	}
	if q.ProjectID != 0 {
		filter = append(filter, term("project_id", q.ProjectID))
	}
	if q.EventType != "" {
		filter = append(filter, term("event_type", q.EventType))
	}
	if q.Status != "" {
		filter = append(filter, term("status", q.Status))
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	size := q.Size
	if size <= 0 || size > 100 {
		size = 20
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"from":  q.From,
		"size":  size,
		"sort":  []interface{}{map[string]interface{}{"updated_at": "desc"}},
	}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}
