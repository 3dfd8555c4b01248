// Package outlook holds the base company dataset and the rules for rendering
// it with published overrides applied.
package outlook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bullet is one numbered claim/body unit of a company outlook.
type Bullet struct {
	N         int    `json:"n"`
	Claim     string `json:"claim"`
	Body      string `json:"body"`
	Footnotes []int  `json:"footnotes,omitempty"`
}

// RiskText is the primary-risks section. Older releases stored it as a list
// of sentences; both shapes decode to a single newline-joined string.
type RiskText string

func (r *RiskText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RiskText(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("primary_risks: expected string or list of strings")
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			parts = append(parts, item)
		}
	}
	*r = RiskText(strings.Join(parts, "\n"))
	return nil
}

type Outlook struct {
	Bullets      []Bullet          `json:"bullets"`
	PrimaryRisks RiskText          `json:"primary_risks"`
	Footnotes    map[string]string `json:"footnote_key,omitempty"`
	LastReviewed string            `json:"last_reviewed,omitempty"`
	Version      string            `json:"version,omitempty"`
}

// Company is a base outlook record. Records are replaced wholesale on each data
// release and never mutated in place.
type Company struct {
	Ticker  string   `json:"ticker"`
	Name    string   `json:"name"`
	NameJA  string   `json:"name_ja,omitempty"`
	Slug    string   `json:"slug"`
	Tags    []string `json:"tags,omitempty"`
	Outlook Outlook  `json:"outlook"`
}

// Bullet returns the bullet numbered n.
func (c Company) Bullet(n int) (Bullet, bool) {
	for _, b := range c.Outlook.Bullets {
		if b.N == n {
			return b, true
		}
	}
	return Bullet{}, false
}

func (c Company) clone() Company {
	out := c
	out.Tags = append([]string(nil), c.Tags...)
	out.Outlook.Bullets = make([]Bullet, len(c.Outlook.Bullets))
	for i, b := range c.Outlook.Bullets {
		b.Footnotes = append([]int(nil), b.Footnotes...)
		out.Outlook.Bullets[i] = b
	}
	if c.Outlook.Footnotes != nil {
		out.Outlook.Footnotes = make(map[string]string, len(c.Outlook.Footnotes))
		for k, v := range c.Outlook.Footnotes {
			out.Outlook.Footnotes[k] = v
		}
	}
	return out
}
