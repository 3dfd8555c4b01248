package ops

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LegacyRun accepts the older run layouts: the summary-count variant with a
// health block, and the admin variant with last_full_scan_jst. Field names
// from both are recognised here and nowhere else.
type LegacyRun struct {
	Date            string            `yaml:"date"`
	LastFullScanJST string            `yaml:"last_full_scan_jst"`
	Health          legacyHealth      `yaml:"health"`
	Items           []LegacyItem      `yaml:"action_required"`
	Completed       []LegacyCompleted `yaml:"completed"`
}

type legacyHealth struct {
	LastScan string `yaml:"last_scan"`
}

type LegacyItem struct {
	ID              string   `yaml:"id"`
	Ticker          string   `yaml:"ticker"`
	Company         string   `yaml:"company"`
	Reason          string   `yaml:"reason"`
	SuggestedAction string   `yaml:"suggested_action"`
	Confidence      string   `yaml:"confidence"`
	Sources         []string `yaml:"sources"`
	Status          string   `yaml:"status"`
	ActionType      string   `yaml:"action_type"`
	Note            string   `yaml:"pm_note"`
	BulletNo        *int     `yaml:"bullet_no"`
	CurrentBullet   string   `yaml:"current_bullet"`
	ProposedBullet  string   `yaml:"proposed_bullet"`
}

type LegacyCompleted struct {
	Ticker    string `yaml:"ticker"`
	Company   string `yaml:"company"`
	Outcome   string `yaml:"outcome"`
	Decision  string `yaml:"decision"`
	Notes     string `yaml:"notes"`
	DecidedAt string `yaml:"decided_at_iso"`
}

func LoadLegacyRunFile(path string) (LegacyRun, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return LegacyRun{}, fmt.Errorf("read legacy run %s: %w", path, err)
	}
	var legacy LegacyRun
	if err := yaml.Unmarshal(raw, &legacy); err != nil {
		return LegacyRun{}, fmt.Errorf("decode legacy run %s: %w", path, err)
	}
	return legacy, nil
}

// ConvertLegacyRun maps a legacy run onto the canonical shape. The action type
// is never guessed from the reason or suggested-action text: every item that
// lacks one is reported and the conversion fails.
func ConvertLegacyRun(legacy LegacyRun) (Run, error) {
	run := Run{
		Date:      strings.TrimSpace(legacy.Date),
		ScanTime:  firstNonBlank(legacy.LastFullScanJST, legacy.Health.LastScan),
		Items:     make([]ActionItem, 0, len(legacy.Items)),
		Completed: make([]CompletedRecord, 0, len(legacy.Completed)),
	}

	var problems []error
	for i, li := range legacy.Items {
		kind := ActionKind(strings.TrimSpace(li.ActionType))
		if kind == "" {
			problems = append(problems, fmt.Errorf("item %d (%s %q): missing action_type", i, li.Ticker, li.SuggestedAction))
			continue
		}
		run.Items = append(run.Items, ActionItem{
			ID:              li.ID,
			Ticker:          li.Ticker,
			Company:         li.Company,
			Reason:          li.Reason,
			SuggestedAction: li.SuggestedAction,
			Confidence:      li.Confidence,
			Sources:         li.Sources,
			Status:          li.Status,
			Kind:            kind,
			Note:            li.Note,
			BulletNo:        li.BulletNo,
			CurrentText:     li.CurrentBullet,
			ProposedText:    li.ProposedBullet,
		})
	}
	for _, lc := range legacy.Completed {
		run.Completed = append(run.Completed, CompletedRecord{
			Ticker:    lc.Ticker,
			Company:   lc.Company,
			Decision:  firstNonBlank(lc.Decision, lc.Outcome),
			Notes:     lc.Notes,
			DecidedAt: lc.DecidedAt,
		})
	}
	if len(problems) > 0 {
		return Run{}, fmt.Errorf("convert run %s: %w", run.Date, errors.Join(problems...))
	}
	if err := run.Normalize(); err != nil {
		return Run{}, fmt.Errorf("convert run %s: %w", run.Date, err)
	}
	return run, nil
}

// MarshalRun renders a canonical run as YAML for writing to the runs dir.
func MarshalRun(run Run) ([]byte, error) {
	return yaml.Marshal(run)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
