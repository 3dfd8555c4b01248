package outlook

import (
	"sort"
	"strconv"
	"strings"

	"outlook/api/internal/ops"
)

// PublishedView is a company as displayed: base text with the latest
// published override applied.
type PublishedView struct {
	Company
	HasOverride     bool  `json:"has_override"`
	ChangedBullets  []int `json:"changed_bullets,omitempty"`
	RisksOverridden bool  `json:"risks_overridden"`
}

// ApplyOverride renders c with o applied. Only bullet bodies and the risks
// text are replaceable; claims, footnotes, last-reviewed and version always
// come from the base record. Override text that is blank, or names a bullet
// the company does not have, is ignored. Neither argument is modified.
func ApplyOverride(c Company, o *ops.Override) PublishedView {
	view := PublishedView{Company: c.clone()}
	if o == nil {
		return view
	}

	for i := range view.Outlook.Bullets {
		b := &view.Outlook.Bullets[i]
		text, ok := o.Bullets[strconv.Itoa(b.N)]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		b.Body = text
		view.ChangedBullets = append(view.ChangedBullets, b.N)
	}
	sort.Ints(view.ChangedBullets)

	if risks := strings.TrimSpace(o.Risks); risks != "" {
		view.Outlook.PrimaryRisks = RiskText(risks)
		view.RisksOverridden = true
	}
	view.HasOverride = len(view.ChangedBullets) > 0 || view.RisksOverridden
	return view
}

// ApplyOverrides renders every company, looking overrides up by ticker.
func ApplyOverrides(companies []Company, lookup func(ticker string) *ops.Override) []PublishedView {
	out := make([]PublishedView, 0, len(companies))
	for _, c := range companies {
		out = append(out, ApplyOverride(c, lookup(c.Ticker)))
	}
	return out
}
