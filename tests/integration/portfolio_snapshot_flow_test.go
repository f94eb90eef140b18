package integration

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestPortfolioSnapshotFlow_ComputeAndQuery(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "snapper", "snapshot@test.com", "password123")
	other, _, _ := app.registerUser(t, "other", "other@test.com", "password123")

	// 10 AAPL @ 150 leaves 98500 cash.
	app.mustTrade(t, token, "AAPL", "buy", 10)

	// Step 1: Compute snapshots via pipeline endpoint
	recordedAt := time.Now().UTC().Truncate(time.Second)
	rec := app.pipelineRequest("POST", "/api/v1/pipeline/snapshots",
		fmt.Sprintf(`{"recorded_at":%q}`, recordedAt.Format(time.RFC3339)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 computing snapshots, got %d: %s", rec.Code, rec.Body.String())
	}
	if n := parseJSON(t, rec)["snapshots_recorded"].(float64); n != 2 {
		t.Errorf("expected 2 snapshots, got %.0f", n)
	}

	// Step 2: Re-running for the same instant overwrites
	rec = app.pipelineRequest("POST", "/api/v1/pipeline/snapshots",
		fmt.Sprintf(`{"recorded_at":%q}`, recordedAt.Format(time.RFC3339)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on rerun, got %d", rec.Code)
	}

	// Step 3: Query the user's own snapshots
	q := url.Values{}
	q.Set("from_date", recordedAt.Add(-time.Hour).Format(time.RFC3339))
	q.Set("to_date", recordedAt.Add(time.Hour).Format(time.RFC3339))
	rec = app.request("GET", "/api/v1/users/me/snapshots?"+q.Encode(), "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 getting snapshots, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["total_items"].(float64) != 1 {
		t.Fatalf("expected 1 snapshot, got %v", result["total_items"])
	}
	snapshot := result["data"].([]interface{})[0].(map[string]interface{})
	if snapshot["cash_balance"].(float64) != 98500 {
		t.Errorf("expected cash 98500, got %v", snapshot["cash_balance"])
	}
	if snapshot["holdings_value"].(float64) != 1500 {
		t.Errorf("expected holdings 1500, got %v", snapshot["holdings_value"])
	}
	if snapshot["total_net_worth"].(float64) != 100000 {
		t.Errorf("expected net worth 100000, got %v", snapshot["total_net_worth"])
	}

	// Default window also includes it.
	rec = app.request("GET", "/api/v1/users/me/snapshots", "", other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with default range, got %d: %s", rec.Code, rec.Body.String())
	}
	if parseJSON(t, rec)["total_items"].(float64) != 1 {
		t.Error("expected the other user's own snapshot in the default window")
	}
}

func TestPortfolioSnapshotFlow_PipelineAuth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("POST", "/api/v1/pipeline/snapshots", `{"recorded_at":"2026-01-01T00:00:00Z"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without API key, got %d", rec.Code)
	}

	rec = app.pipelineRequest("POST", "/api/v1/pipeline/snapshots", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without recorded_at, got %d", rec.Code)
	}
}
