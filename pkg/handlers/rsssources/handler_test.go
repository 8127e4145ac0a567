package rsssources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/services"
)

type memStore struct {
	rows map[int32]database.RSSSource
}

func (m *memStore) ListRSSSources(context.Context, bool, *string) ([]database.RSSSource, error) {
	var out []database.RSSSource
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) GetRSSSource(_ context.Context, id int32) (database.RSSSource, error) {
	s, ok := m.rows[id]
	if !ok {
		return database.RSSSource{}, database.ErrNotFound
	}
	return s, nil
}

func (m *memStore) CreateRSSSource(_ context.Context, arg database.RSSSourceParams) (database.RSSSource, error) {
	s := database.RSSSource{ID: int32(len(m.rows) + 1), Name: arg.Name, URL: arg.URL, Language: arg.Language, IsActive: arg.IsActive}
	m.rows[s.ID] = s
	return s, nil
}

func (m *memStore) UpdateRSSSource(_ context.Context, id int32, arg database.RSSSourceParams) (database.RSSSource, error) {
	s := database.RSSSource{ID: id, Name: arg.Name, URL: arg.URL, Language: arg.Language, IsActive: arg.IsActive}
	m.rows[id] = s
	return s, nil
}

func (m *memStore) DeleteRSSSource(_ context.Context, id int32) error {
	delete(m.rows, id)
	return nil
}

type fakeNews struct {
	invalidated int
	tested      []int32
}

func (f *fakeNews) TestSource(_ context.Context, id int32) (*services.SourceTestResult, error) {
	if id == 404 {
		return nil, database.ErrNotFound
	}
	f.tested = append(f.tested, id)
	return &services.SourceTestResult{OK: true}, nil
}

func (f *fakeNews) Invalidate() { f.invalidated++ }

func TestCreateSource(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid", body: `{"name":"BBC Sport","url":"https://feeds.bbci.co.uk/sport/football/rss.xml"}`, wantCode: http.StatusCreated},
		{name: "relative url", body: `{"name":"x","url":"/feed"}`, wantCode: http.StatusBadRequest},
		{name: "ftp url", body: `{"name":"x","url":"ftp://example.com/feed"}`, wantCode: http.StatusBadRequest},
		{name: "no name", body: `{"url":"https://example.com/feed"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			news := &fakeNews{}
			h := NewHandler(&memStore{rows: map[int32]database.RSSSource{}}, news, logger.Nop())
			rr := httptest.NewRecorder()
			h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/automation/rss-sources", strings.NewReader(tt.body)))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode == http.StatusCreated && news.invalidated != 1 {
				t.Error("expected news cache to be invalidated")
			}
		})
	}
}

func TestSourceTest(t *testing.T) {
	news := &fakeNews{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sources/{id}/test", NewHandler(&memStore{}, news, logger.Nop()).Test)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sources/2/test", nil))
	if rr.Code != http.StatusOK || len(news.tested) != 1 {
		t.Fatalf("expected source 2 to be tested, code=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sources/404/test", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
