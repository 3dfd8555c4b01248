package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"outlook/api/internal/config"
	"outlook/api/internal/kv"
	"outlook/api/internal/ops"
	"outlook/api/internal/outlook"
)

const testCatalog = `[
  {"ticker": "4755", "name": "Rakuten Group", "slug": "rakuten-group",
   "outlook": {"bullets": [
     {"n": 1, "claim": "Mobile", "body": "Mobile losses remain the dominant near-term drag."},
     {"n": 2, "claim": "Fintech", "body": "Fintech profits cushion the group."}],
     "primary_risks": "Refinancing costs rise.", "version": "v3"}},
  {"ticker": "6963", "name": "Rohm", "slug": "rohm",
   "outlook": {"bullets": [{"n": 1, "claim": "SiC", "body": "Silicon carbide ramps into weak demand."}],
     "primary_risks": "End-market weakness in autos."}}
]`

func intPtr(n int) *int { return &n }

func testRun() ops.Run {
	return ops.Run{
		Date:     "2025-12-31",
		ScanTime: "2025-12-31 13:20 JST",
		Items: []ops.ActionItem{
			{Ticker: "4755", Company: "Rakuten Group", Confidence: "High", Status: ops.StatusNeedsReview,
				Kind: ops.KindBullet, BulletNo: intPtr(1), ProposedText: "Mobile losses narrow."},
			{Ticker: "6963", Company: "Rohm", Confidence: "Low", Status: ops.StatusNeedsReview,
				Kind: ops.KindRisk, ProposedText: "Auto and industrial weakness."},
		},
		Completed: []ops.CompletedRecord{},
	}
}

// pingStore lets tests fail the readiness probe.
type pingStore struct {
	*kv.MemoryStore
	pingErr error
}

func (p *pingStore) Ping(context.Context) error { return p.pingErr }

type testEnv struct {
	store   *pingStore
	service *Service
	server  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog, err := outlook.ParseCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	store := &pingStore{MemoryStore: kv.NewMemoryStore()}
	svc := New(config.Config{KVBackend: config.BackendMemory, TrendingLimit: 8}, store, catalog,
		ops.NewRunIndex([]ops.Run{testRun()}), nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, time.December, 31, 5, 0, 0, 0, time.UTC) }
	return &testEnv{store: store, service: svc, server: NewHTTPServer(svc, "*", zap.NewNop()).Handler()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)

	var payload map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response for %s %s: %v (%s)", method, path, err, rr.Body.String())
		}
	}
	return rr, payload
}

var errDown = errors.New("connection refused")

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}
