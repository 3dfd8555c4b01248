package app

import (
	"context"
	"net/http"
	"testing"
)

func TestListCompanies(t *testing.T) {
	env := newTestEnv(t)

	rr, payload := env.do(t, http.MethodGet, "/api/companies", nil)
	if rr.Code != http.StatusOK || payload["total"] != float64(2) {
		t.Fatalf("unexpected list %d %v", rr.Code, payload)
	}

	_, payload = env.do(t, http.MethodGet, "/api/companies?q=47", nil)
	direct := payload["direct"].([]any)
	if len(direct) != 1 || direct[0].(map[string]any)["slug"] != "rakuten-group" {
		t.Fatalf("unexpected direct matches %v", payload)
	}
	if payload["source"] != "local" {
		t.Fatalf("expected local search source, got %v", payload["source"])
	}

	_, payload = env.do(t, http.MethodGet, "/api/companies?q=weak", nil)
	keyword := payload["keyword"].([]any)
	if len(keyword) != 1 || keyword[0].(map[string]any)["ticker"] != "6963" || keyword[0].(map[string]any)["hits"] != float64(2) {
		t.Fatalf("unexpected keyword matches %v", payload)
	}
}

func TestGetCompany(t *testing.T) {
	env := newTestEnv(t)

	rr, page := env.do(t, http.MethodGet, "/api/companies/rohm", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if page["lastRun"] != "2025-12-31" {
		t.Fatalf("expected last run mentioning ticker, got %v", page["lastRun"])
	}
	if page["meta"] != nil {
		t.Fatalf("expected no publish meta yet, got %v", page["meta"])
	}
	if page["company"].(map[string]any)["has_override"] != false {
		t.Fatalf("expected no override, got %v", page["company"])
	}

	rr, payload := env.do(t, http.MethodGet, "/api/companies/toyota", nil)
	if rr.Code != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d %v", rr.Code, payload)
	}
}

func TestGetCompanyRendersWhenStoreFails(t *testing.T) {
	env := newTestEnv(t)
	if err := env.store.Set(context.Background(), "outlook:override:6963", []byte("{broken")); err != nil {
		t.Fatal(err)
	}

	rr, page := env.do(t, http.MethodGet, "/api/companies/rohm", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected base page despite corrupt override, got %d", rr.Code)
	}
	risks := page["company"].(map[string]any)["outlook"].(map[string]any)["primary_risks"]
	if risks != "End-market weakness in autos." {
		t.Fatalf("expected base risks, got %v", risks)
	}
}

func TestViewsAndTrending(t *testing.T) {
	env := newTestEnv(t)

	for _, slug := range []string{"rohm", "rohm", "rakuten-group"} {
		rr, _ := env.do(t, http.MethodPost, "/api/companies/"+slug+"/views", nil)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202 recording view of %s, got %d", slug, rr.Code)
		}
	}
	rr, _ := env.do(t, http.MethodPost, "/api/companies/toyota/views", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slug, got %d", rr.Code)
	}

	rr, payload := env.do(t, http.MethodGet, "/api/trending?window=1d", nil)
	if rr.Code != http.StatusOK || payload["window"] != "1d" {
		t.Fatalf("unexpected trending %d %v", rr.Code, payload)
	}
	items := payload["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 trending rows, got %v", items)
	}
	first := items[0].(map[string]any)
	if first["slug"] != "rohm" || first["views"] != float64(2) || first["ticker"] != "6963" {
		t.Fatalf("unexpected first row %v", first)
	}

	_, limited := env.do(t, http.MethodGet, "/api/trending?window=1w&limit=1", nil)
	if len(limited["items"].([]any)) != 1 {
		t.Fatalf("expected limit to apply, got %v", limited)
	}

	rr, payload = env.do(t, http.MethodGet, "/api/trending?window=1y", nil)
	if rr.Code != http.StatusBadRequest || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 for bad window, got %d %v", rr.Code, payload)
	}
}
