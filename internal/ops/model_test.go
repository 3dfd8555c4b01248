package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemIDFormat(t *testing.T) {
	assert.Equal(t, "4755-Bullet-1", ItemID("4755", KindBullet, intPtr(1)))
	assert.Equal(t, "6963-Risk-na", ItemID("6963", KindRisk, nil))
	assert.Equal(t, "4676-NoChange-na", ItemID(" 4676 ", KindNoChange, nil))
}

func TestIdentityIgnoresMutableFields(t *testing.T) {
	a := sampleRun().Items[0]
	b := a
	b.Reason = "Completely different reason"
	b.Confidence = "Low"
	b.Status = "Approved"
	b.ProposedText = "Another draft"

	assert.Equal(t, a.Identity(), b.Identity())
	assert.Equal(t, a.Identity(), a.Identity())
}

func TestIdentityPrefersExplicitID(t *testing.T) {
	item := ActionItem{ID: "6963-Risk-1", Ticker: "6963", Kind: KindRisk}
	assert.Equal(t, "6963-Risk-1", item.Identity())
}

func TestNormalizeConfidence(t *testing.T) {
	cases := map[string]Confidence{
		"High":      ConfidenceHigh,
		"very HIGH": ConfidenceHigh,
		"Medium":    ConfidenceMedium,
		"med":       ConfidenceMedium,
		"Low":       ConfidenceLow,
		"":          ConfidenceOther,
		"uncertain": ConfidenceOther,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeConfidence(raw), raw)
	}
}

func TestDecisionStatus(t *testing.T) {
	assert.Equal(t, "No change", DecisionNoChange.Status())
	assert.Equal(t, "Approved", DecisionApproved.Status())
	assert.Equal(t, "Deferred", DecisionDeferred.Status())
	assert.Equal(t, "Rejected", DecisionRejected.Status())
	assert.False(t, Decision("Maybe").Valid())
}

func TestValidRunDate(t *testing.T) {
	assert.True(t, ValidRunDate("2025-12-31"))
	assert.False(t, ValidRunDate("2025-12-3"))
	assert.False(t, ValidRunDate(" 2025-12-31"))
	assert.False(t, ValidRunDate("2025/12/31"))
	assert.False(t, ValidRunDate(""))
}

func TestRunItemLookup(t *testing.T) {
	run := sampleRun()
	item, ok := run.Item("6963-Risk-na")
	assert.True(t, ok)
	assert.Equal(t, "Rohm", item.Company)

	_, ok = run.Item("0000-Risk-na")
	assert.False(t, ok)
}
