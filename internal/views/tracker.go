// Package views counts company page views and ranks trending companies.
package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/kv"
)

const (
	logKey    = "views:log"
	retention = 90 * 24 * time.Hour
	maxPerKey = 500
	day       = 24 * time.Hour
)

var ErrUnknownWindow = errors.New("window must be one of 1d, 1w, 1m")

// Window is a trending look-back period.
type Window string

const (
	Day   Window = "1d"
	Week  Window = "1w"
	Month Window = "1m"
)

// ParseWindow accepts 1d, 1w or 1m. An empty token means 1w.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return Week, nil
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWindow, s)
	}
}

func (w Window) Duration() time.Duration {
	switch w {
	case Day:
		return day
	case Month:
		return 30 * day
	default:
		return 7 * day
	}
}

// Row is one trending entry.
type Row struct {
	Slug  string `json:"slug"`
	Views int    `json:"views"`
}

// Tracker stores view timestamps (unix milliseconds) per slug under a single
// key. Updates are read-modify-write; concurrent recorders can lose a view,
// which is acceptable for naive counters.
type Tracker struct {
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewTracker(store kv.Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{kv: store, logger: logger, now: time.Now}
}

// Record appends a view of slug at the current time, dropping timestamps
// older than the retention period and keeping at most the newest 500 per slug.
func (t *Tracker) Record(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return errors.New("slug is required")
	}
	views, err := t.read(ctx)
	if errors.Is(err, kv.ErrCorrupt) {
		t.logger.Warn("views: resetting corrupt log", zap.Error(err))
		views = map[string][]int64{}
	} else if err != nil {
		return fmt.Errorf("load views: %w", err)
	}

	now := t.now()
	cutoff := now.Add(-retention).UnixMilli()
	kept := prune(views[slug], cutoff)
	kept = append(kept, now.UnixMilli())
	if len(kept) > maxPerKey {
		kept = kept[len(kept)-maxPerKey:]
	}
	views[slug] = kept

	if err := kv.SetJSON(ctx, t.kv, logKey, views); err != nil {
		return fmt.Errorf("save views: %w", err)
	}
	return nil
}

// Trending ranks slugs by views within window: most viewed first, ties by
// slug. Slugs with no views in the window are left out. An unreadable log
// yields no rows.
func (t *Tracker) Trending(ctx context.Context, window Window, n int) []Row {
	views, err := t.read(ctx)
	if err != nil {
		t.logger.Warn("views: load failed, no trending data", zap.Error(err))
		return []Row{}
	}
	return Rank(views, t.now().Add(-window.Duration()), n)
}

// Rank counts the timestamps at or after since for each slug.
func Rank(views map[string][]int64, since time.Time, n int) []Row {
	cutoff := since.UnixMilli()
	rows := make([]Row, 0, len(views))
	for slug, stamps := range views {
		count := 0
		for _, ts := range stamps {
			if ts >= cutoff {
				count++
			}
		}
		if count > 0 {
			rows = append(rows, Row{Slug: slug, Views: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Views != rows[j].Views {
			return rows[i].Views > rows[j].Views
		}
		return rows[i].Slug < rows[j].Slug
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func (t *Tracker) read(ctx context.Context) (map[string][]int64, error) {
	views := map[string][]int64{}
	if _, err := kv.GetJSON(ctx, t.kv, logKey, &views); err != nil {
		return nil, err
	}
	if views == nil {
		views = map[string][]int64{}
	}
	return views, nil
}

func prune(stamps []int64, cutoff int64) []int64 {
	out := make([]int64, 0, len(stamps)+1)
	for _, ts := range stamps {
		if ts >= cutoff {
			out = append(out, ts)
		}
	}
	return out
}
