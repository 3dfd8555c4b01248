package ops

import (
	"context"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/kv"
)

// Override is the latest published replacement text for one ticker. Only the
// newest publish matters, so it is keyed by ticker alone.
type Override struct {
	Ticker    string            `json:"ticker"`
	Bullets   map[string]string `json:"bullets_override,omitempty"`
	Risks     string            `json:"risks_override,omitempty"`
	Updated   time.Time         `json:"updated_at"`
	SourceRun string            `json:"source_run"`
	Version   int               `json:"version"`
}

// Meta is the publish metadata shown next to a company page.
type Meta struct {
	Ticker         string    `json:"ticker"`
	LastPublished  time.Time `json:"last_published_iso"`
	OverrideActive bool      `json:"override_active"`
	Version        int       `json:"version"`
	SourceRun      string    `json:"source_run,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// AuditEntry records one live publish.
type AuditEntry struct {
	RunDate string    `json:"runDate"`
	Updated time.Time `json:"updated_at"`
	Count   int       `json:"count"`
}

// OverrideLayer reads the published overrides, publish metadata and audit
// entries. Every read degrades to nil: the public page must render from base
// data when the store is unavailable.
type OverrideLayer struct {
	kv     kv.Store
	logger *zap.Logger
}

func NewOverrideLayer(store kv.Store, logger *zap.Logger) *OverrideLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideLayer{kv: store, logger: logger}
}

func (l *OverrideLayer) Override(ctx context.Context, ticker string) *Override {
	if ticker == "" {
		return nil
	}
	var o Override
	if !l.get(ctx, overrideKey(ticker), &o) {
		return nil
	}
	return &o
}

func (l *OverrideLayer) Meta(ctx context.Context, ticker string) *Meta {
	if ticker == "" {
		return nil
	}
	var m Meta
	if !l.get(ctx, metaKey(ticker), &m) {
		return nil
	}
	m.Ticker = ticker
	return &m
}

func (l *OverrideLayer) Audit(ctx context.Context, runDate string) *AuditEntry {
	if !ValidRunDate(runDate) {
		return nil
	}
	var a AuditEntry
	if !l.get(ctx, publishedKey(runDate), &a) {
		return nil
	}
	return &a
}

func (l *OverrideLayer) get(ctx context.Context, key string, target any) bool {
	found, err := kv.GetJSON(ctx, l.kv, key, target)
	if err != nil {
		l.logger.Warn("overrides: read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}
