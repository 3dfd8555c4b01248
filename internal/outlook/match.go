package outlook

import (
	"sort"
	"strings"
)

const MaxMatches = 20

// Match is a company with the number of keyword hits that selected it.
type Match struct {
	Company
	Hits int `json:"hits,omitempty"`
}

// DirectMatches returns companies whose ticker equals or starts with q, or
// whose name or slug contains it, in catalog order. A trailing "JP" market
// suffix on a ticker-like query is ignored.
func DirectMatches(companies []Company, q string, limit int) []Company {
	query := normalizeQuery(q)
	if query == "" {
		return []Company{}
	}
	ticker := strings.TrimSpace(strings.TrimSuffix(strings.ReplaceAll(query, ".", " "), "jp"))
	limit = clampLimit(limit)

	out := []Company{}
	for _, c := range companies {
		t := strings.ToLower(c.Ticker)
		if (ticker != "" && strings.HasPrefix(t, ticker)) ||
			strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Slug), query) {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// KeywordMatches ranks companies by how often q occurs in their searchable
// text. Companies without a hit are dropped; ties keep catalog order.
func KeywordMatches(companies []Company, q string, limit int) []Match {
	query := normalizeQuery(q)
	if query == "" {
		return []Match{}
	}

	out := []Match{}
	for _, c := range companies {
		if hits := strings.Count(Corpus(c), query); hits > 0 {
			out = append(out, Match{Company: c, Hits: hits})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hits > out[j].Hits })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Corpus is the lowercased text keyword search runs over: name, ticker, slug,
// bullet bodies and risks.
func Corpus(c Company) string {
	parts := []string{c.Name, c.Ticker, c.Slug}
	for _, b := range c.Outlook.Bullets {
		parts = append(parts, bulletText(b))
	}
	parts = append(parts, string(c.Outlook.PrimaryRisks))
	return strings.ToLower(strings.Join(parts, " "))
}

func bulletText(b Bullet) string {
	if b.Body != "" {
		return b.Body
	}
	return b.Claim
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxMatches {
		return MaxMatches
	}
	return limit
}
