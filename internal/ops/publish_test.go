package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"outlook/api/internal/kv"
	"outlook/api/internal/patch"
)

func newTestPublisher(store kv.Store) *Publisher {
	p := NewPublisher(store, zap.NewNop())
	p.now = fixedClock
	return p
}

func bullet(ticker string, n int, text string) patch.Instruction {
	return patch.Instruction{Ticker: ticker, Target: patch.TargetBullet, BulletNo: n, Text: text}
}

func risks(ticker, text string) patch.Instruction {
	return patch.Instruction{Ticker: ticker, Target: patch.TargetRisks, Text: text}
}

func TestPublishDryRunWritesNothing(t *testing.T) {
	mem := kv.NewMemoryStore()
	p := newTestPublisher(mem)

	res, err := p.Publish(context.Background(), PublishRequest{
		RunDate: "2025-12-31",
		Items:   []patch.Instruction{bullet("4755", 1, "a"), risks("6963", "b"), bullet("", 2, "c")},
		DryRun:  true,
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, mem.Keys())
}

func TestPublishMergesWithoutDroppingFields(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	require.NoError(t, kv.SetJSON(ctx, mem, overrideKey("4755"), Override{
		Ticker:  "4755",
		Bullets: map[string]string{"1": "X"},
		Risks:   "R",
		Version: 3,
	}))
	p := newTestPublisher(mem)

	res, err := p.Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{bullet("4755", 2, "Y")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, []string{"4755"}, res.Tickers)

	layer := NewOverrideLayer(mem, zap.NewNop())
	got := layer.Override(ctx, "4755")
	require.NotNil(t, got)
	assert.Equal(t, map[string]string{"1": "X", "2": "Y"}, got.Bullets)
	assert.Equal(t, "R", got.Risks)
	assert.Equal(t, 4, got.Version)
	assert.Equal(t, "2025-12-31", got.SourceRun)
	assert.Equal(t, fixedNow, got.Updated)

	meta := layer.Meta(ctx, "4755")
	require.NotNil(t, meta)
	assert.True(t, meta.OverrideActive)
	assert.Equal(t, 4, meta.Version)
	assert.Equal(t, fixedNow, meta.LastPublished)

	audit := layer.Audit(ctx, "2025-12-31")
	require.NotNil(t, audit)
	assert.Equal(t, 1, audit.Count)
}

func TestPublishBumpsVersionOncePerTicker(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	p := newTestPublisher(mem)

	_, err := p.Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{
		bullet("6976", 1, "one"),
		bullet("6976", 3, "three"),
		risks("6976", "risks"),
		risks("6963", "other"),
	}})
	require.NoError(t, err)

	layer := NewOverrideLayer(mem, nil)
	got := layer.Override(ctx, "6976")
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, map[string]string{"1": "one", "3": "three"}, got.Bullets)
	assert.Equal(t, "risks", got.Risks)

	// same publish again is safe and only advances the version
	_, err = p.Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{bullet("6976", 1, "one")}})
	require.NoError(t, err)
	again := layer.Override(ctx, "6976")
	assert.Equal(t, 2, again.Version)
	assert.Equal(t, got.Bullets, again.Bullets)
	assert.Equal(t, got.Risks, again.Risks)
}

func TestPublishSkipsUnusableItems(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	p := newTestPublisher(mem)

	res, err := p.Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{
		bullet("  ", 1, "blank ticker"),
		bullet("4755", 0, "bad bullet"),
		{Ticker: "4755", Target: "Footnote", Text: "unknown target"},
		risks(" 6963 ", "kept"),
	}})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, []string{"6963"}, res.Tickers)
	assert.Nil(t, NewOverrideLayer(mem, nil).Override(ctx, "4755"))
}

func TestPublishRejectsWholeRequest(t *testing.T) {
	mem := kv.NewMemoryStore()
	p := newTestPublisher(mem)
	ctx := context.Background()

	_, err := p.Publish(ctx, PublishRequest{RunDate: "2025-13", Items: []patch.Instruction{risks("6963", "x")}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Invalid runDate (expected YYYY-MM-DD)", verr.Message)

	_, err = p.Publish(ctx, PublishRequest{RunDate: "2025-12-31"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Missing items", verr.Message)

	assert.Empty(t, mem.Keys())
}

func TestPublishReplacesCorruptOverride(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, overrideKey("6963"), []byte("[]")))
	p := newTestPublisher(mem)

	_, err := p.Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{risks("6963", "fresh")}})
	require.NoError(t, err)

	got := NewOverrideLayer(mem, nil).Override(ctx, "6963")
	require.NotNil(t, got)
	assert.Equal(t, "fresh", got.Risks)
	assert.Equal(t, 1, got.Version)
}

func TestPublishStoreFailures(t *testing.T) {
	ctx := context.Background()

	failing := newFailingStore()
	failing.failGet = true
	_, err := newTestPublisher(failing).Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{risks("6963", "x")}})
	assert.ErrorIs(t, err, errUnavailable)

	// an audit failure does not fail the publish
	auditFails := newFailingStore()
	auditFails.failSetKey = publishedKey("2025-12-31")
	res, err := newTestPublisher(auditFails).Publish(ctx, PublishRequest{RunDate: "2025-12-31", Items: []patch.Instruction{risks("6963", "x")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.NotNil(t, NewOverrideLayer(auditFails, nil).Override(ctx, "6963"))
}

func TestMergeOverrideLeavesInputUntouched(t *testing.T) {
	current := Override{Ticker: "4755", Bullets: map[string]string{"1": "X"}}
	next := MergeOverride(current, bullet("4755", 1, "Z"))

	assert.Equal(t, "X", current.Bullets["1"])
	assert.Equal(t, "Z", next.Bullets["1"])

	empty := MergeOverride(Override{}, risks("6963", "r"))
	assert.Nil(t, empty.Bullets)
	assert.Equal(t, "r", empty.Risks)
}

func TestOverrideLayerDegrades(t *testing.T) {
	ctx := context.Background()
	failing := newFailingStore()
	failing.failGet = true
	layer := NewOverrideLayer(failing, zap.NewNop())

	assert.Nil(t, layer.Override(ctx, "4755"))
	assert.Nil(t, layer.Meta(ctx, "4755"))
	assert.Nil(t, layer.Audit(ctx, "2025-12-31"))

	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, metaKey("4755"), []byte("oops")))
	layer = NewOverrideLayer(mem, nil)
	assert.Nil(t, layer.Meta(ctx, "4755"))
	assert.Nil(t, layer.Override(ctx, ""))
	assert.Nil(t, layer.Audit(ctx, "bad-date"))
}
