package ops

import (
	"strings"

	"outlook/api/internal/patch"
)

// ApprovedPatch lists the edits approved for run, in item order, ready for
// patch.Format. Items without proposed text, and items whose ticker cannot
// appear in a patch header, are left out.
func ApprovedPatch(run Run, decisions []DecisionRecord) []patch.Entry {
	approved := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		approved[d.ID] = d.Decision == DecisionApproved
	}

	entries := []patch.Entry{}
	for _, item := range run.Items {
		if !approved[item.Identity()] || strings.TrimSpace(item.ProposedText) == "" {
			continue
		}
		if !patch.ValidTicker(item.Ticker) {
			continue
		}
		ins := patch.Instruction{Ticker: item.Ticker, Text: item.ProposedText}
		switch item.Kind {
		case KindBullet:
			if item.BulletNo == nil {
				continue
			}
			ins.Target = patch.TargetBullet
			ins.BulletNo = *item.BulletNo
		case KindRisk:
			ins.Target = patch.TargetRisks
		default:
			continue
		}
		entries = append(entries, patch.Entry{Company: item.Company, Instruction: ins})
	}
	return entries
}
