package ops

import (
	"context"
	"errors"
	"time"

	"outlook/api/internal/kv"
)

func intPtr(n int) *int { return &n }

var fixedNow = time.Date(2025, time.December, 31, 4, 20, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var errUnavailable = errors.New("store unavailable")

// failingStore wraps a MemoryStore and fails the selected operations.
type failingStore struct {
	*kv.MemoryStore
	failGet    bool
	failSet    bool
	failSetKey string
}

func newFailingStore() *failingStore {
	return &failingStore{MemoryStore: kv.NewMemoryStore()}
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errUnavailable
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet || (f.failSetKey != "" && f.failSetKey == key) {
		return errUnavailable
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func sampleRun() Run {
	return Run{
		Date:     "2025-12-31",
		ScanTime: "2025-12-31 13:20 JST",
		Items: []ActionItem{
			{
				Ticker:          "4755",
				Company:         "Rakuten Group",
				Reason:          "Management emphasis shift",
				SuggestedAction: "Update Bullet 1",
				Confidence:      "High",
				Sources:         []string{"TDnet", "Transcript"},
				Status:          StatusNeedsReview,
				Kind:            KindBullet,
				BulletNo:        intPtr(1),
				CurrentText:     "Mobile losses remain the dominant near-term drag.",
				ProposedText:    "Mobile losses remain the dominant drag, with emphasis on unit economics.",
			},
			{
				Ticker:          "6976",
				Company:         "Taiyo Yuden",
				Reason:          "Margin pressure referenced more prominently",
				SuggestedAction: "Update Bullet 2",
				Confidence:      "medium-ish",
				Status:          "Deferred",
				Kind:            KindBullet,
				BulletNo:        intPtr(2),
			},
			{
				Ticker:          "6963",
				Company:         "Rohm",
				Reason:          "Risk language changed",
				SuggestedAction: "Update Primary Risks",
				Confidence:      "Low",
				Status:          StatusNeedsReview,
				Kind:            KindRisk,
				ProposedText:    "End-market weakness in autos and industrial.",
			},
			{
				Ticker:     "4676",
				Company:    "Fuji Media Holdings",
				Reason:     "Noise",
				Confidence: "n/a",
				Status:     StatusNeedsReview,
				Kind:       KindNoChange,
			},
		},
		Completed: []CompletedRecord{
			{Ticker: "9984", Company: "SoftBank Group", Decision: "No change"},
		},
	}
}
