// Package ops holds the operator side of the outlook: weekly runs and their
// action items, recorded decisions, and the published override layer.
package ops

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type ActionKind string

const (
	KindBullet   ActionKind = "Bullet"
	KindRisk     ActionKind = "Risk"
	KindNoChange ActionKind = "NoChange"
)

func (k ActionKind) Valid() bool {
	switch k {
	case KindBullet, KindRisk, KindNoChange:
		return true
	default:
		return false
	}
}

// Label is the dashboard wording for the kind.
func (k ActionKind) Label() string {
	switch k {
	case KindBullet:
		return "Update Bullet"
	case KindRisk:
		return "Update Risks"
	default:
		return "No change"
	}
}

type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionDeferred Decision = "Deferred"
	DecisionRejected Decision = "Rejected"
	DecisionNoChange Decision = "NoChange"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionDeferred, DecisionRejected, DecisionNoChange:
		return true
	default:
		return false
	}
}

// Status maps a decision to the queue status it produces.
func (d Decision) Status() string {
	if d == DecisionNoChange {
		return StatusNoChange
	}
	return string(d)
}

const (
	StatusNeedsReview = "Needs review"
	StatusNoChange    = "No change"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
	ConfidenceOther  Confidence = "Other"
)

// NormalizeConfidence buckets free-text confidence labels.
func NormalizeConfidence(raw string) Confidence {
	v := strings.ToLower(raw)
	switch {
	case strings.Contains(v, "high"):
		return ConfidenceHigh
	case strings.Contains(v, "med"):
		return ConfidenceMedium
	case strings.Contains(v, "low"):
		return ConfidenceLow
	default:
		return ConfidenceOther
	}
}

// ActionItem is one suggestion flagged for review within a run.
type ActionItem struct {
	ID              string     `json:"id,omitempty" yaml:"id,omitempty"`
	Ticker          string     `json:"ticker" yaml:"ticker"`
	Company         string     `json:"company" yaml:"company"`
	Reason          string     `json:"reason" yaml:"reason"`
	SuggestedAction string     `json:"suggested_action" yaml:"suggested_action"`
	Confidence      string     `json:"confidence" yaml:"confidence"`
	Sources         []string   `json:"sources" yaml:"sources"`
	Status          string     `json:"status" yaml:"status"`
	Kind            ActionKind `json:"action_type" yaml:"action_type"`
	Note            string     `json:"pm_note,omitempty" yaml:"pm_note,omitempty"`
	BulletNo        *int       `json:"bullet_no,omitempty" yaml:"bullet_no,omitempty"`
	CurrentText     string     `json:"current_text,omitempty" yaml:"current_text,omitempty"`
	ProposedText    string     `json:"proposed_text,omitempty" yaml:"proposed_text,omitempty"`
}

// Identity returns the item's stable identifier within its run.
func (a ActionItem) Identity() string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	return ItemID(a.Ticker, a.Kind, a.BulletNo)
}

// ItemID derives an identity from the immutable fields of an action item.
// Reason, confidence and status never participate.
func ItemID(ticker string, kind ActionKind, bulletNo *int) string {
	n := "na"
	if bulletNo != nil {
		n = fmt.Sprintf("%d", *bulletNo)
	}
	return fmt.Sprintf("%s-%s-%s", strings.TrimSpace(ticker), kind, n)
}

// CompletedRecord is a finished review carried over from an earlier cycle.
type CompletedRecord struct {
	Ticker    string `json:"ticker" yaml:"ticker"`
	Company   string `json:"company" yaml:"company"`
	Decision  string `json:"decision" yaml:"decision"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
	DecidedAt string `json:"decided_at_iso,omitempty" yaml:"decided_at_iso,omitempty"`
}

// Run is one weekly review cycle. Runs are immutable once loaded; operator
// activity lives in the DecisionStore.
type Run struct {
	Date      string            `json:"date" yaml:"date"`
	ScanTime  string            `json:"scan_time,omitempty" yaml:"scan_time,omitempty"`
	Items     []ActionItem      `json:"action_required" yaml:"action_required"`
	Completed []CompletedRecord `json:"completed" yaml:"completed"`
}

// Item finds an action item by identity.
func (r Run) Item(id string) (ActionItem, bool) {
	for _, item := range r.Items {
		if item.Identity() == id {
			return item, true
		}
	}
	return ActionItem{}, false
}

// DecisionRecord is the operator's disposition of one action item.
type DecisionRecord struct {
	RunDate   string     `json:"runDate"`
	ID        string     `json:"id"`
	Ticker    string     `json:"ticker"`
	Company   string     `json:"company"`
	Kind      ActionKind `json:"action_type"`
	Decision  Decision   `json:"decision"`
	Note      string     `json:"pm_note,omitempty"`
	DecidedAt time.Time  `json:"decided_at_iso"`
}

// NewDecisionRecord builds the record for deciding item within runDate.
func NewDecisionRecord(runDate string, item ActionItem, decision Decision, note string, at time.Time) DecisionRecord {
	return DecisionRecord{
		RunDate:   runDate,
		ID:        item.Identity(),
		Ticker:    item.Ticker,
		Company:   item.Company,
		Kind:      item.Kind,
		Decision:  decision,
		Note:      strings.TrimSpace(note),
		DecidedAt: at.UTC(),
	}
}

const timeLayout = time.RFC3339

var runDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidRunDate reports whether s is exactly YYYY-MM-DD.
func ValidRunDate(s string) bool {
	return runDatePattern.MatchString(s)
}
