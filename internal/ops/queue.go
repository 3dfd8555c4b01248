package ops

import "strings"

// QueueFilter narrows the review queue. Empty or "All" disables a field.
type QueueFilter struct {
	Status     string
	Kind       string
	Confidence string
}

func (f QueueFilter) matches(item QueueItem) bool {
	return matchField(f.Status, item.EffectiveStatus) &&
		matchField(f.Kind, string(item.Kind)) &&
		matchField(f.Confidence, string(item.ConfidenceLevel))
}

func matchField(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, "All") || want == got
}

// QueueItem is an action item with the operator's decision folded in.
type QueueItem struct {
	ActionItem
	ID              string          `json:"id"`
	EffectiveStatus string          `json:"status"`
	Note            string          `json:"pm_note,omitempty"`
	ConfidenceLevel Confidence      `json:"confidence_level"`
	Decision        *DecisionRecord `json:"decision,omitempty"`
}

type QueueCounts struct {
	Total       int `json:"total"`
	NeedsReview int `json:"needsReview"`
	Bullet      int `json:"bullet"`
	Risk        int `json:"risk"`
	NoChange    int `json:"noChange"`
	Shown       int `json:"shown"`
}

// Queue is the operator's view of one run.
type Queue struct {
	RunDate   string            `json:"runDate"`
	ScanTime  string            `json:"scanTime,omitempty"`
	Pending   []QueueItem       `json:"pending"`
	Completed []QueueItem       `json:"completed"`
	Counts    QueueCounts       `json:"counts"`
	Log       []CompletedRecord `json:"log"`
}

// BuildQueue folds decisions into the run's action items and partitions them
// into pending (status "Needs review") and completed. Source order is kept in
// both halves and the filter never reorders. Identity collisions are not
// detected here; LoadRuns rejects them.
func BuildQueue(run Run, decisions []DecisionRecord, filter QueueFilter) Queue {
	byID := make(map[string]DecisionRecord, len(decisions))
	for _, d := range decisions {
		byID[d.ID] = d
	}

	q := Queue{
		RunDate:   run.Date,
		ScanTime:  run.ScanTime,
		Pending:   []QueueItem{},
		Completed: []QueueItem{},
	}

	for _, item := range run.Items {
		qi := enrich(item, byID)

		q.Counts.Total++
		if qi.EffectiveStatus == StatusNeedsReview {
			q.Counts.NeedsReview++
		}
		switch item.Kind {
		case KindBullet:
			q.Counts.Bullet++
		case KindRisk:
			q.Counts.Risk++
		case KindNoChange:
			q.Counts.NoChange++
		}

		if !filter.matches(qi) {
			continue
		}
		q.Counts.Shown++
		if qi.EffectiveStatus == StatusNeedsReview {
			q.Pending = append(q.Pending, qi)
		} else {
			q.Completed = append(q.Completed, qi)
		}
	}

	q.Log = completedLog(run, decisions)
	return q
}

func enrich(item ActionItem, decisions map[string]DecisionRecord) QueueItem {
	qi := QueueItem{
		ActionItem:      item,
		ID:              item.Identity(),
		EffectiveStatus: item.Status,
		Note:            item.Note,
		ConfidenceLevel: NormalizeConfidence(item.Confidence),
	}
	if qi.EffectiveStatus == "" {
		qi.EffectiveStatus = StatusNeedsReview
	}
	if d, ok := decisions[qi.ID]; ok {
		decision := d
		qi.Decision = &decision
		qi.EffectiveStatus = d.Decision.Status()
		if d.Note != "" {
			qi.Note = d.Note
		}
	}
	return qi
}

// completedLog lists carried-over completions followed by this run's decisions.
func completedLog(run Run, decisions []DecisionRecord) []CompletedRecord {
	out := make([]CompletedRecord, 0, len(run.Completed)+len(decisions))
	out = append(out, run.Completed...)
	for _, d := range decisions {
		out = append(out, CompletedRecord{
			Ticker:    d.Ticker,
			Company:   d.Company,
			Decision:  string(d.Decision),
			Notes:     d.Note,
			DecidedAt: d.DecidedAt.UTC().Format(timeLayout),
		})
	}
	return out
}
