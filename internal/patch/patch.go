// Package patch reads and writes the plain-text "publish patch" lists that
// operators copy from a reviewed run and paste into the publish page.
//
// A patch looks like:
//
//	Publish patch (run 2025-12-31)
//
//	4755 Rakuten Group — Bullet #1
//	New bullet text here.
//
//	6963 Rohm — Primary Risks
//	New risks text.
//
// Each header is followed by a body that runs until the next blank line.
package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Target string

const (
	TargetBullet Target = "bullet"
	TargetRisks  Target = "risks"
)

// Instruction is one edit parsed from a patch. BulletNo is 1-based and only
// meaningful for TargetBullet.
type Instruction struct {
	Ticker   string `json:"ticker"`
	Target   Target `json:"target"`
	BulletNo int    `json:"bullet_no,omitempty"`
	Text     string `json:"text"`
}

// Label renders the header suffix, e.g. "Bullet #2" or "Primary Risks".
func (i Instruction) Label() string {
	if i.Target == TargetBullet {
		return fmt.Sprintf("Bullet #%d", i.BulletNo)
	}
	return "Primary Risks"
}

type Result struct {
	DetectedRunDate string        `json:"detectedRunDate,omitempty"`
	Items           []Instruction `json:"items"`
	Warnings        []string      `json:"warnings"`
}

var (
	headerPattern  = regexp.MustCompile(`(?i)^(\d{4,5})\s+.*—\s+(Bullet\s+#(\d+)|Primary\s+Risks)\s*$`)
	runDatePattern = regexp.MustCompile(`(?i)run\s+(\d{4}-\d{2}-\d{2})`)
	runDateMarker  = "publish patch (run"
	tickerPattern  = regexp.MustCompile(`^\d{4,5}$`)
)

// ValidTicker reports whether ticker can appear in a patch header.
func ValidTicker(ticker string) bool {
	return tickerPattern.MatchString(ticker)
}

// headerLine folds no-break spaces, common in text pasted from documents,
// into plain spaces so the header pattern sees them as whitespace.
func headerLine(line string) string {
	return strings.TrimSpace(strings.ReplaceAll(line, "\u00a0", " "))
}

// Parse extracts edit instructions from raw. It never fails: headers whose
// body is empty are reported in Warnings and dropped, and unrecognised lines
// outside a body are ignored.
func Parse(raw string) Result {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	result := Result{Items: []Instruction{}, Warnings: []string{}}
	result.DetectedRunDate = detectRunDate(lines)

	i := 0
	for i < len(lines) {
		match := headerPattern.FindStringSubmatch(headerLine(lines[i]))
		if match == nil {
			i++
			continue
		}

		ticker := match[1]
		isBullet := match[3] != ""

		i++
		var body []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			body = append(body, lines[i])
			i++
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		// skip the blank terminator
		i++

		item := Instruction{Ticker: ticker, Target: TargetRisks, Text: text}
		if isBullet {
			n, err := strconv.Atoi(match[3])
			if err != nil || n < 1 {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid bullet number for %s: %s", ticker, match[3]))
				continue
			}
			item.Target = TargetBullet
			item.BulletNo = n
		}

		if text == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Missing text for %s %s", ticker, item.Label()))
			continue
		}
		result.Items = append(result.Items, item)
	}

	return result
}

func detectRunDate(lines []string) string {
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), runDateMarker) {
			continue
		}
		if m := runDatePattern.FindStringSubmatch(line); m != nil {
			return m[1]
		}
		return ""
	}
	return ""
}

// ResolveRunDate picks the run date for a publish: a manually entered date
// always wins over the one detected in the patch text.
func ResolveRunDate(manual, detected string) string {
	if m := strings.TrimSpace(manual); m != "" {
		return m
	}
	return strings.TrimSpace(detected)
}
