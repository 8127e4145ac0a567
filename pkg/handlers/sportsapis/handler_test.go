package sportsapis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
)

type memStore struct {
	rows    []database.SportsAPI
	updated database.SportsAPIParams
}

func (m *memStore) ListSportsAPIs(context.Context, bool) ([]database.SportsAPI, error) {
	return m.rows, nil
}

func (m *memStore) CreateSportsAPI(_ context.Context, arg database.SportsAPIParams) (database.SportsAPI, error) {
	row := database.SportsAPI{ID: int32(len(m.rows) + 1), Name: arg.Name, Provider: arg.Provider, APIKey: arg.APIKey}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memStore) UpdateSportsAPI(_ context.Context, id int32, arg database.SportsAPIParams) (database.SportsAPI, error) {
	m.updated = arg
	return database.SportsAPI{ID: id, Name: arg.Name, Provider: arg.Provider}, nil
}

func (m *memStore) DeleteSportsAPI(context.Context, int32) error { return nil }

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func TestCreateSportsAPI(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid", body: `{"name":"primary","provider":"API-Football","api_key":"secret-key"}`, wantCode: http.StatusCreated},
		{name: "missing key", body: `{"name":"primary"}`, wantCode: http.StatusBadRequest},
		{name: "unsupported provider", body: `{"name":"x","provider":"football-data","api_key":"k"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &countingInvalidator{}
			h := NewHandler(&memStore{}, inv, logger.Nop())
			rr := httptest.NewRecorder()
			h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/automation/sports-apis", strings.NewReader(tt.body)))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				return
			}
			if inv.n != 1 {
				t.Error("provider chain should be invalidated")
			}
			if strings.Contains(rr.Body.String(), "secret-key") {
				t.Error("api key leaked in response")
			}
		})
	}
}

func TestUpdateSportsAPIKeepsFields(t *testing.T) {
	store := &memStore{rows: []database.SportsAPI{{ID: 2, Name: "backup", Provider: "api-sports", DailyLimit: 100, IsActive: true}}}
	inv := &countingInvalidator{}
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /apis/{id}", NewHandler(store, inv, logger.Nop()).Update)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/apis/2", strings.NewReader(`{"priority":5}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if store.updated.Name != "backup" || store.updated.DailyLimit != 100 || store.updated.Priority != 5 || store.updated.APIKey != "" {
		t.Errorf("unexpected update params %+v", store.updated)
	}
	if inv.n != 1 {
		t.Error("provider chain should be invalidated")
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/apis/9", strings.NewReader(`{}`)))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
