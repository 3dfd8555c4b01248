package ops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/kv"
)

// DecisionStore keeps the decisions recorded against each run, one kv key per
// run date. Writes are read-modify-write with no locking; the dashboard has a
// single operator.
type DecisionStore struct {
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewDecisionStore(store kv.Store, logger *zap.Logger) *DecisionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionStore{kv: store, logger: logger, now: time.Now}
}

// Load returns the decisions recorded for runDate. Missing, unreadable or
// corrupt data all yield an empty slice: decisions are advisory.
func (s *DecisionStore) Load(ctx context.Context, runDate string) []DecisionRecord {
	records, err := s.read(ctx, runDate)
	if err != nil {
		s.logger.Warn("decisions: load failed, treating run as undecided",
			zap.String("run_date", runDate), zap.Error(err))
		return []DecisionRecord{}
	}
	return records
}

func (s *DecisionStore) read(ctx context.Context, runDate string) ([]DecisionRecord, error) {
	var records []DecisionRecord
	if _, err := kv.GetJSON(ctx, s.kv, decisionsKey(runDate), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []DecisionRecord{}
	}
	return records, nil
}

// Upsert stores record, replacing any earlier decision with the same identity
// in place. The record is returned as stored.
func (s *DecisionStore) Upsert(ctx context.Context, runDate string, record DecisionRecord) (DecisionRecord, error) {
	if !ValidRunDate(runDate) {
		return DecisionRecord{}, ErrInvalidRunDate
	}
	if record.ID == "" {
		return DecisionRecord{}, ErrMissingID
	}
	if !record.Decision.Valid() {
		return DecisionRecord{}, ErrInvalidDecision
	}
	record.RunDate = runDate
	if record.DecidedAt.IsZero() {
		record.DecidedAt = s.now().UTC()
	}

	current, err := s.read(ctx, runDate)
	if errors.Is(err, kv.ErrCorrupt) {
		s.logger.Warn("decisions: replacing corrupt record set", zap.String("run_date", runDate), zap.Error(err))
		current = []DecisionRecord{}
	} else if err != nil {
		// an unreachable store must not be mistaken for an empty run
		return DecisionRecord{}, fmt.Errorf("load decisions for %s: %w", runDate, err)
	}
	replaced := false
	for i := range current {
		if current[i].ID == record.ID {
			current[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, record)
	}

	if err := kv.SetJSON(ctx, s.kv, decisionsKey(runDate), current); err != nil {
		return DecisionRecord{}, fmt.Errorf("save decisions for %s: %w", runDate, err)
	}
	s.logger.Info("decisions: recorded",
		zap.String("run_date", runDate),
		zap.String("item_id", record.ID),
		zap.String("decision", string(record.Decision)),
		zap.Bool("replaced", replaced))
	return record, nil
}

// Clear removes every decision for runDate. It cannot be undone.
func (s *DecisionStore) Clear(ctx context.Context, runDate string) error {
	if !ValidRunDate(runDate) {
		return ErrInvalidRunDate
	}
	if err := s.kv.Delete(ctx, decisionsKey(runDate)); err != nil {
		return fmt.Errorf("clear decisions for %s: %w", runDate, err)
	}
	s.logger.Info("decisions: cleared", zap.String("run_date", runDate))
	return nil
}
