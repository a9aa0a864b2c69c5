package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Third-South-Capital/callscrape/internal/db"
	"github.com/Third-South-Capital/callscrape/internal/models"
)

type staticOracle struct {
	response string
}

func (o *staticOracle) GenerateCompletion(_ context.Context, _ string, _ bool) (string, error) {
	return o.response, nil
}

func newTestServer(t *testing.T, store db.Store) *Server {
	t.Helper()
	t.Setenv("ADMIN_SECRET", "test-admin-secret")
	s, err := NewServer(store)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.EnrichLogPath = filepath.Join(t.TempDir(), "enrichment_log.json")
	return s
}

func seedStore(t *testing.T, store db.Store) *models.Opportunity {
	t.Helper()
	opp := &models.Opportunity{
		ID:             models.DeterministicID(models.PlatformCafe, "https://example.org/1"),
		Title:          "Annual Photography Open",
		SourcePlatform: models.PlatformCafe,
		URL:            "https://example.org/1",
		LocationRaw:    "email for details",
		IsActive:       true,
	}
	if _, err := store.Upsert(context.Background(), opp); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return opp
}

func doRequest(s *Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, db.NewNoopStore())
	rec := doRequest(s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListOpportunities(t *testing.T) {
	store := db.NewNoopStore()
	seedStore(t, store)
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/opportunities?platform=cafe", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result db.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 1 || len(result.Opportunities) != 1 {
		t.Errorf("result = %+v", result)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/opportunities?platform=zapplication", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("unexpected matches for empty platform: %+v", result)
	}
}

func TestGetOpportunity(t *testing.T) {
	store := db.NewNoopStore()
	opp := seedStore(t, store)
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/v1/opportunities/"+opp.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/opportunities/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/v1/opportunities/"+models.DeterministicID("cafe", "missing").String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d", rec.Code)
	}
}

func TestGetPlatforms(t *testing.T) {
	s := newTestServer(t, db.NewNoopStore())
	rec := doRequest(s, http.MethodGet, "/api/v1/platforms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var platforms []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &platforms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(platforms) != len(models.Platforms) {
		t.Errorf("platforms = %d, want %d", len(platforms), len(models.Platforms))
	}
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t, db.NewNoopStore())

	rec := doRequest(s, http.MethodPost, "/api/v1/enrich", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/v1/ingest/cafe", map[string]string{"X-Admin-Secret": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret status = %d", rec.Code)
	}
}

func TestIngestRejectsUnknownPlatform(t *testing.T) {
	s := newTestServer(t, db.NewNoopStore())
	rec := doRequest(s, http.MethodPost, "/api/v1/ingest/myspace", map[string]string{"X-Admin-Secret": "test-admin-secret"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEnrichEndpoint(t *testing.T) {
	store := db.NewNoopStore()
	opp := seedStore(t, store)
	s := newTestServer(t, store)
	s.Oracle = &staticOracle{response: `{"city": "Asheville", "state": "NC", "is_online": false, "confidence": "high"}`}

	rec := doRequest(s, http.MethodPost, "/api/v1/enrich", map[string]string{"X-Admin-Secret": "test-admin-secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report struct {
		Enriched int `json:"enriched"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Enriched != 1 {
		t.Errorf("enriched = %d, want 1", report.Enriched)
	}

	stored, err := store.GetByID(context.Background(), opp.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LocationRaw != "Asheville, NC" {
		t.Errorf("LocationRaw = %q", stored.LocationRaw)
	}
}
