package patch

import (
	"regexp"
	"strings"
)

// Entry pairs an instruction with the company name shown in its header.
type Entry struct {
	Company string
	Instruction
}

var blankRun = regexp.MustCompile(`\n\s*\n+`)

// Format renders entries as a patch that Parse reads back. Blank lines inside
// a body would end it early, so they are collapsed. Entries whose ticker Parse
// cannot read are left out.
func Format(runDate string, entries []Entry) string {
	var b strings.Builder
	if runDate != "" {
		b.WriteString("Publish patch (run ")
		b.WriteString(runDate)
		b.WriteString(")\n")
	}
	for _, e := range entries {
		text := strings.TrimSpace(blankRun.ReplaceAllString(strings.ReplaceAll(e.Text, "\r\n", "\n"), "\n"))
		if text == "" || !ValidTicker(e.Ticker) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		name := strings.TrimSpace(e.Company)
		if name == "" {
			name = e.Ticker
		}
		b.WriteString(e.Ticker + " " + name + " — " + e.Label() + "\n")
		b.WriteString(text + "\n")
	}
	return b.String()
}
