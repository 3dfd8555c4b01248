package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outlook/api/internal/ops"
	"outlook/api/internal/patch"
)

const samplePatch = `Publish patch (run 2025-12-31)

4755 Rakuten Group — Bullet #1
New bullet text here.

6963 Rohm — Primary Risks
New risks text.
`

const canonicalRun = `date: "2025-12-31"
scan_time: "2025-12-31 13:00 JST"
action_required:
  - ticker: "4755"
    company: Rakuten Group
    reason: Emphasis shift
    suggested_action: Update Bullet 1
    confidence: High
    status: Needs review
    action_type: Bullet
    bullet_no: 1
  - ticker: "6963"
    company: Rohm
    suggested_action: Update Primary Risks
    status: Deferred
    action_type: Risk
completed: []
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--kv-backend", "memory"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestPatchParseJSON(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", samplePatch)

	out, err := execute(t, "--json", "patch", "parse", path)
	require.NoError(t, err)

	var got struct {
		RunDate  string              `json:"runDate"`
		Items    []patch.Instruction `json:"items"`
		Warnings []string            `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2025-12-31", got.RunDate)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "4755", got.Items[0].Ticker)
	assert.Empty(t, got.Warnings)
}

func TestPatchParseManualRunWins(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", samplePatch)

	out, err := execute(t, "patch", "parse", "--run", "2026-01-07", path)
	require.NoError(t, err)
	assert.Contains(t, out, "run: 2026-01-07")
	assert.Contains(t, out, "Bullet #1")
	assert.Contains(t, out, "Primary Risks")
}

func TestPatchPublishDryRun(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", samplePatch)

	out, err := execute(t, "--json", "patch", "publish", "--dry-run", path)
	require.NoError(t, err)

	var res ops.PublishResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.OK)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Count)
}

func TestPatchPublishWithoutRunDateFails(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", "4755 Rakuten Group — Bullet #1\nText.\n")

	_, err := execute(t, "patch", "publish", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid runDate")
}

func TestDecisionsRequireValidRun(t *testing.T) {
	_, err := execute(t, "decisions", "list", "--run", "31-12-2025")
	assert.ErrorIs(t, err, ops.ErrInvalidRunDate)
}

func TestDecisionsListEmpty(t *testing.T) {
	out, err := execute(t, "--json", "decisions", "list", "--run", "2025-12-31")
	require.NoError(t, err)

	var records []ops.DecisionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Empty(t, records)
}

func TestRunsList(t *testing.T) {
	dataDir := t.TempDir()
	writeTemp(t, dataDir, filepath.Join("runs", "2025-12-31.yaml"), canonicalRun)

	out, err := execute(t, "--json", "--data-dir", dataDir, "runs", "list")
	require.NoError(t, err)

	var rows []runRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, runRow{Date: "2025-12-31", ScanTime: "2025-12-31 13:00 JST", Items: 2, Pending: 1}, rows[0])
}

func TestRunsConvertWritesCanonicalFile(t *testing.T) {
	dir := t.TempDir()
	legacy := writeTemp(t, dir, "legacy.yaml", `date: "2025-12-24"
last_full_scan_jst: "2025-12-24 13:00 JST"
action_required:
  - ticker: "4755"
    company: Rakuten Group
    action_type: Bullet
    bullet_no: 1
    proposed_bullet: New text.
`)
	outPath := filepath.Join(dir, "2025-12-24.yaml")

	out, err := execute(t, "runs", "convert", legacy, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote run 2025-12-24")

	run, err := ops.LoadRunFile(outPath)
	require.NoError(t, err)
	require.Len(t, run.Items, 1)
	assert.Equal(t, "New text.", run.Items[0].ProposedText)
	assert.Equal(t, "2025-12-24 13:00 JST", run.ScanTime)
}

func TestRunsConvertRejectsMissingActionType(t *testing.T) {
	legacy := writeTemp(t, t.TempDir(), "legacy.yaml", `date: "2025-12-24"
action_required:
  - ticker: "4755"
    suggested_action: Update Bullet 1
`)

	_, err := execute(t, "runs", "convert", legacy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action_type")
}

func TestTrendingRejectsUnknownWindow(t *testing.T) {
	_, err := execute(t, "trending", "--window", "2y")
	require.Error(t, err)
}

func TestTrendingEmpty(t *testing.T) {
	out, err := execute(t, "--json", "trending", "--window", "1d")
	require.NoError(t, err)

	var got struct {
		Window string `json:"window"`
		Items  []any  `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1d", got.Window)
	assert.Empty(t, got.Items)
}

const patchWithEmptyBody = `Publish patch (run 2025-12-31)

4755 Rakuten Group — Bullet #1

6963 Rohm — Primary Risks
New risks text.
`

func TestPatchPublishReportsDroppedHeaders(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", patchWithEmptyBody)

	out, err := execute(t, "patch", "publish", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "warning: Missing text for 4755 Bullet #1")
	assert.Contains(t, out, "would publish 1 instruction(s)")
}

func TestPatchPublishJSONCarriesWarnings(t *testing.T) {
	path := writeTemp(t, t.TempDir(), "patch.txt", patchWithEmptyBody)

	out, err := execute(t, "--json", "patch", "publish", "--dry-run", path)
	require.NoError(t, err)

	var got publishOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "4755")
}
