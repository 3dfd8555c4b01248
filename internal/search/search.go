// Package search serves the public company search. Meilisearch is used when it
// is configured and reachable; otherwise an in-process scorer answers.
package search

import (
	"strings"

	"outlook/api/internal/outlook"
)

// Source names the backend that produced the keyword results.
type Source string

const (
	SourceMeili Source = "meilisearch"
	SourceLocal Source = "local"
)

// Result is a single company hit returned to the caller.
type Result struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
	NameJA  string `json:"name_ja,omitempty"`
	Slug    string `json:"slug"`
	Snippet string `json:"snippet,omitempty"`
	Hits    int    `json:"hits,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Limit int
}

// Response carries direct (ticker/name/slug) matches and keyword matches
// separately; the page renders them as two lists.
type Response struct {
	Query   string   `json:"query"`
	Direct  []Result `json:"direct"`
	Keyword []Result `json:"keyword"`
	Total   int      `json:"total"`
	Source  Source   `json:"source"`
}

// Searcher can execute a keyword search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// CompanyRecord is the data we index for a company: the published text, so
// search agrees with what the page shows.
type CompanyRecord struct {
	ID      string   `json:"id"`
	Ticker  string   `json:"ticker"`
	Name    string   `json:"name"`
	NameJA  string   `json:"name_ja,omitempty"`
	Slug    string   `json:"slug"`
	Tags    []string `json:"tags,omitempty"`
	Bullets []string `json:"bullets"`
	Risks   string   `json:"risks"`
}

// NewCompanyRecord flattens c for indexing. The slug doubles as the document
// id since it is unique and URL-safe.
func NewCompanyRecord(c outlook.Company) CompanyRecord {
	bullets := make([]string, 0, len(c.Outlook.Bullets))
	for _, b := range c.Outlook.Bullets {
		bullets = append(bullets, firstNonBlank(b.Body, b.Claim))
	}
	return CompanyRecord{
		ID:      c.Slug,
		Ticker:  c.Ticker,
		Name:    c.Name,
		NameJA:  c.NameJA,
		Slug:    c.Slug,
		Tags:    c.Tags,
		Bullets: bullets,
		Risks:   string(c.Outlook.PrimaryRisks),
	}
}

func resultFor(c outlook.Company) Result {
	return Result{Ticker: c.Ticker, Name: c.Name, NameJA: c.NameJA, Slug: c.Slug}
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
