package outlook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Catalog is the loaded base dataset, in file order.
type Catalog struct {
	companies []Company
	bySlug    map[string]int
	byTicker  map[string]int
}

// LoadCatalog reads a JSON array of companies from path.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes, normalizes and validates a company list. Tickers and
// slugs must be present and unique; bullets are numbered 1..n with no gaps.
// Bullets without a number take their position.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var companies []Company
	if err := json.Unmarshal(raw, &companies); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		companies: companies,
		bySlug:    make(map[string]int, len(companies)),
		byTicker:  make(map[string]int, len(companies)),
	}
	var problems []error
	for i := range c.companies {
		co := &c.companies[i]
		co.Ticker = strings.TrimSpace(co.Ticker)
		co.Slug = strings.TrimSpace(co.Slug)
		if co.Ticker == "" || co.Slug == "" {
			problems = append(problems, fmt.Errorf("company %d: ticker and slug are required", i))
			continue
		}
		if prev, dup := c.byTicker[co.Ticker]; dup {
			problems = append(problems, fmt.Errorf("companies %d and %d share ticker %s", prev, i, co.Ticker))
			continue
		}
		if prev, dup := c.bySlug[co.Slug]; dup {
			problems = append(problems, fmt.Errorf("companies %d and %d share slug %s", prev, i, co.Slug))
			continue
		}
		if err := numberBullets(co.Outlook.Bullets); err != nil {
			problems = append(problems, fmt.Errorf("company %s: %w", co.Ticker, err))
			continue
		}
		c.byTicker[co.Ticker] = i
		c.bySlug[co.Slug] = i
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return c, nil
}

func numberBullets(bullets []Bullet) error {
	for i := range bullets {
		if bullets[i].N == 0 {
			bullets[i].N = i + 1
		}
	}
	sort.SliceStable(bullets, func(i, j int) bool { return bullets[i].N < bullets[j].N })
	for i, b := range bullets {
		if b.N != i+1 {
			return fmt.Errorf("bullets must be numbered 1..%d, found #%d at position %d", len(bullets), b.N, i+1)
		}
	}
	return nil
}

// All returns the companies in file order.
func (c *Catalog) All() []Company {
	out := make([]Company, len(c.companies))
	copy(out, c.companies)
	return out
}

func (c *Catalog) Len() int { return len(c.companies) }

func (c *Catalog) BySlug(slug string) (Company, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Company{}, false
	}
	return c.companies[i], true
}

func (c *Catalog) ByTicker(ticker string) (Company, bool) {
	i, ok := c.byTicker[ticker]
	if !ok {
		return Company{}, false
	}
	return c.companies[i], true
}
