package ops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRuns reads every run file (*.yaml, *.yml, *.json) in dir. Files must be
// in the canonical shape; legacy files go through ConvertLegacyRun first.
func LoadRuns(dir string) ([]Run, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read runs dir: %w", err)
	}

	var runs []Run
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !isRunFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		run, err := LoadRunFile(path)
		if err != nil {
			return nil, err
		}
		if other, dup := seen[run.Date]; dup {
			return nil, fmt.Errorf("run %s defined in both %s and %s", run.Date, other, entry.Name())
		}
		seen[run.Date] = entry.Name()
		runs = append(runs, run)
	}
	return runs, nil
}

func isRunFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

// LoadRunFile decodes and validates a single canonical run file.
func LoadRunFile(path string) (Run, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", path, err)
	}
	var run Run
	if err := yaml.Unmarshal(raw, &run); err != nil {
		return Run{}, fmt.Errorf("decode run %s: %w", path, err)
	}
	if err := run.Normalize(); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", filepath.Base(path), err)
	}
	return run, nil
}

// Normalize fills defaults and validates the run. Every item needs a ticker
// and an explicit action type; bullet items need a bullet number. Two items
// deriving the same identity are rejected because decisions would be shared
// between them.
func (r *Run) Normalize() error {
	r.Date = strings.TrimSpace(r.Date)
	if !ValidRunDate(r.Date) {
		return fmt.Errorf("%w: %q", ErrInvalidRunDate, r.Date)
	}

	var problems []error
	ids := make(map[string]int, len(r.Items))
	for i := range r.Items {
		item := &r.Items[i]
		item.Ticker = strings.TrimSpace(item.Ticker)
		if item.Status == "" {
			item.Status = StatusNeedsReview
		}
		if item.Ticker == "" {
			problems = append(problems, fmt.Errorf("item %d: ticker is required", i))
			continue
		}
		if !item.Kind.Valid() {
			problems = append(problems, fmt.Errorf("item %d (%s): action_type must be Bullet, Risk or NoChange, got %q", i, item.Ticker, item.Kind))
			continue
		}
		if item.Kind == KindBullet && (item.BulletNo == nil || *item.BulletNo < 1) {
			problems = append(problems, fmt.Errorf("item %d (%s): bullet items need bullet_no >= 1", i, item.Ticker))
			continue
		}
		id := item.Identity()
		if prev, dup := ids[id]; dup {
			problems = append(problems, fmt.Errorf("items %d and %d share identity %s", prev, i, id))
			continue
		}
		ids[id] = i
	}
	if r.Completed == nil {
		r.Completed = []CompletedRecord{}
	}
	return errors.Join(problems...)
}

// RunIndex serves loaded runs by date.
type RunIndex struct {
	runs   []Run
	byDate map[string]int
}

// NewRunIndex orders runs newest first.
func NewRunIndex(runs []Run) *RunIndex {
	sorted := make([]Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date > sorted[j].Date })
	idx := &RunIndex{runs: sorted, byDate: make(map[string]int, len(sorted))}
	for i, r := range sorted {
		idx.byDate[r.Date] = i
	}
	return idx
}

func (x *RunIndex) Get(date string) (Run, bool) {
	i, ok := x.byDate[date]
	if !ok {
		return Run{}, false
	}
	return x.runs[i], true
}

func (x *RunIndex) List() []Run {
	out := make([]Run, len(x.runs))
	copy(out, x.runs)
	return out
}

// LastRunMentioning returns the newest run date with an action item for
// ticker, or "" when no run mentions it.
func (x *RunIndex) LastRunMentioning(ticker string) string {
	for _, r := range x.runs {
		for _, item := range r.Items {
			if item.Ticker == ticker {
				return r.Date
			}
		}
	}
	return ""
}
