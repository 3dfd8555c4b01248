package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxCompanies = "outlook_companies"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the company index.
// The client is returned even when the first health check fails; the health
// loop picks it up once the server is reachable.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("search: meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCompanies,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("search: create index (may already exist)", zap.String("index", idxCompanies), zap.Error(err))
	}

	index := m.client.Index(idxCompanies)
	filterable := []interface{}{"ticker", "tags"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("search: update filterable attrs", zap.String("index", idxCompanies), zap.Error(err))
	}
	searchable := []string{"ticker", "name", "name_ja", "slug", "tags", "bullets", "risks"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("search: update searchable attrs", zap.String("index", idxCompanies), zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the company index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID:              idxCompanies,
			Query:                 q.Text,
			Limit:                 limit,
			AttributesToHighlight: []string{"bullets", "risks"},
			AttributesToCrop:      []string{"bullets", "risks"},
			CropLength:            30,
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit))
		}
	}
	return results, total, nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		Ticker:  decodeString(hit, "ticker"),
		Name:    decodeString(hit, "name"),
		NameJA:  decodeString(hit, "name_ja"),
		Slug:    decodeString(hit, "slug"),
		Snippet: snippet(hit),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// snippet picks the first highlighted fragment from the formatted hit.
func snippet(hit meili.Hit) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted struct {
		Bullets []string `json:"bullets"`
		Risks   string   `json:"risks"`
	}
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	for _, b := range formatted.Bullets {
		if strings.Contains(b, "<mark>") {
			return strings.TrimSpace(b)
		}
	}
	if strings.Contains(formatted.Risks, "<mark>") {
		return strings.TrimSpace(formatted.Risks)
	}
	return ""
}

// IndexCompanies adds or updates companies in the index.
func (m *Meili) IndexCompanies(records []CompanyRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCompanies).AddDocuments(records, nil)
	return err
}
