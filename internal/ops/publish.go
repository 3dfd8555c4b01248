package ops

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/kv"
	"outlook/api/internal/patch"
)

type PublishRequest struct {
	RunDate string              `json:"runDate"`
	Items   []patch.Instruction `json:"items"`
	DryRun  bool                `json:"dryRun"`
}

type PublishResult struct {
	OK      bool     `json:"ok"`
	DryRun  bool     `json:"dryRun"`
	Count   int      `json:"count"`
	Skipped int      `json:"skipped,omitempty"`
	Tickers []string `json:"tickers,omitempty"`
}

// Publisher merges patch instructions into the override layer.
type Publisher struct {
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewPublisher(store kv.Store, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{kv: store, logger: logger, now: time.Now}
}

// Publish validates the request as a whole, then merges each usable
// instruction into its ticker's override. Instructions with no ticker (or a
// bullet number below 1) are skipped without failing the batch. A dry run
// validates and counts but writes nothing.
//
// Each ticker is read and written back separately; a failed write returns an
// error and leaves earlier tickers published. Re-running the same publish is
// safe.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	runDate := strings.TrimSpace(req.RunDate)
	if !ValidRunDate(runDate) {
		return PublishResult{}, &ValidationError{Message: "Invalid runDate (expected YYYY-MM-DD)"}
	}
	if len(req.Items) == 0 {
		return PublishResult{}, &ValidationError{Message: "Missing items"}
	}

	usable := make([]patch.Instruction, 0, len(req.Items))
	for _, item := range req.Items {
		item.Ticker = strings.TrimSpace(item.Ticker)
		if !usableInstruction(item) {
			continue
		}
		usable = append(usable, item)
	}
	result := PublishResult{
		OK:      true,
		DryRun:  req.DryRun,
		Count:   len(usable),
		Skipped: len(req.Items) - len(usable),
	}
	if req.DryRun {
		return result, nil
	}

	updatedAt := p.now().UTC()
	touched := make(map[string]bool)
	for _, item := range usable {
		firstTouch := !touched[item.Ticker]
		if err := p.apply(ctx, runDate, item, updatedAt, firstTouch); err != nil {
			return PublishResult{}, err
		}
		if firstTouch {
			touched[item.Ticker] = true
			result.Tickers = append(result.Tickers, item.Ticker)
		}
	}

	audit := AuditEntry{RunDate: runDate, Updated: updatedAt, Count: result.Count}
	if err := kv.SetJSON(ctx, p.kv, publishedKey(runDate), audit); err != nil {
		p.logger.Warn("publish: audit write failed", zap.String("run_date", runDate), zap.Error(err))
	}

	p.logger.Info("publish: overrides written",
		zap.String("run_date", runDate),
		zap.Int("count", result.Count),
		zap.Int("skipped", result.Skipped),
		zap.Strings("tickers", result.Tickers))
	return result, nil
}

func usableInstruction(item patch.Instruction) bool {
	if item.Ticker == "" {
		return false
	}
	switch item.Target {
	case patch.TargetBullet:
		return item.BulletNo >= 1
	case patch.TargetRisks:
		return true
	default:
		return false
	}
}

// apply merges one instruction into the stored override. Fields the
// instruction does not name are left as previously published.
func (p *Publisher) apply(ctx context.Context, runDate string, item patch.Instruction, updatedAt time.Time, bumpVersion bool) error {
	key := overrideKey(item.Ticker)
	var current Override
	if _, err := kv.GetJSON(ctx, p.kv, key, &current); err != nil {
		if !errors.Is(err, kv.ErrCorrupt) {
			return fmt.Errorf("read override %s: %w", item.Ticker, err)
		}
		p.logger.Warn("publish: replacing corrupt override", zap.String("ticker", item.Ticker), zap.Error(err))
		current = Override{}
	}

	next := MergeOverride(current, item)
	next.Updated = updatedAt
	next.SourceRun = runDate
	if bumpVersion {
		next.Version++
	}

	if err := kv.SetJSON(ctx, p.kv, key, next); err != nil {
		return fmt.Errorf("write override %s: %w", item.Ticker, err)
	}

	meta := Meta{
		Ticker:         item.Ticker,
		LastPublished:  updatedAt,
		OverrideActive: true,
		Version:        next.Version,
		SourceRun:      runDate,
	}
	if err := kv.SetJSON(ctx, p.kv, metaKey(item.Ticker), meta); err != nil {
		return fmt.Errorf("write meta %s: %w", item.Ticker, err)
	}
	return nil
}

// MergeOverride returns current with item applied. current is not modified.
func MergeOverride(current Override, item patch.Instruction) Override {
	next := current
	next.Ticker = item.Ticker
	next.Bullets = make(map[string]string, len(current.Bullets)+1)
	for k, v := range current.Bullets {
		next.Bullets[k] = v
	}
	switch item.Target {
	case patch.TargetBullet:
		next.Bullets[strconv.Itoa(item.BulletNo)] = item.Text
	case patch.TargetRisks:
		next.Risks = item.Text
	}
	if len(next.Bullets) == 0 {
		next.Bullets = nil
	}
	return next
}
