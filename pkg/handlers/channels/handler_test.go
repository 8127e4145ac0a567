package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
)

type memStore struct {
	rows   map[int32]database.Channel
	nextID int32
}

func newMemStore() *memStore {
	return &memStore{rows: map[int32]database.Channel{}, nextID: 1}
}

func (m *memStore) ListChannels(_ context.Context, activeOnly bool) ([]database.Channel, error) {
	var out []database.Channel
	for _, ch := range m.rows {
		if !activeOnly || ch.IsActive {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (m *memStore) GetChannel(_ context.Context, id int32) (database.Channel, error) {
	ch, ok := m.rows[id]
	if !ok {
		return database.Channel{}, database.ErrNotFound
	}
	return ch, nil
}

func (m *memStore) CreateChannel(_ context.Context, arg database.ChannelParams) (database.Channel, error) {
	ch := database.Channel{
		ID: m.nextID, Name: arg.Name, TelegramChatID: arg.TelegramChatID, Language: arg.Language,
		Timezone: arg.Timezone, ContentTypes: arg.ContentTypes, MaxPostsPerDay: arg.MaxPostsPerDay, IsActive: arg.IsActive,
	}
	m.rows[ch.ID] = ch
	m.nextID++
	return ch, nil
}

func (m *memStore) UpdateChannel(ctx context.Context, id int32, arg database.ChannelParams) (database.Channel, error) {
	if _, ok := m.rows[id]; !ok {
		return database.Channel{}, database.ErrNotFound
	}
	ch := database.Channel{
		ID: id, Name: arg.Name, TelegramChatID: arg.TelegramChatID, Language: arg.Language,
		Timezone: arg.Timezone, ContentTypes: arg.ContentTypes, MaxPostsPerDay: arg.MaxPostsPerDay, IsActive: arg.IsActive,
	}
	m.rows[id] = ch
	return ch, nil
}

func (m *memStore) DeleteChannel(_ context.Context, id int32) error {
	if _, ok := m.rows[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func newMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels", h.List)
	mux.HandleFunc("POST /channels", h.Create)
	mux.HandleFunc("GET /channels/{id}", h.Get)
	mux.HandleFunc("PUT /channels/{id}", h.Update)
	mux.HandleFunc("DELETE /channels/{id}", h.Delete)
	return mux
}

func do(mux http.Handler, method, path, body string) (*httptest.ResponseRecorder, api.Response) {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	var resp api.Response
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	return rr, resp
}

func TestCreateChannel(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid", body: `{"name":"Main","telegram_chat_id":"@main","content_types":["news","polls"]}`, wantCode: http.StatusCreated},
		{name: "missing chat", body: `{"name":"Main"}`, wantCode: http.StatusBadRequest},
		{name: "bad content type", body: `{"name":"Main","telegram_chat_id":"@main","content_types":["memes"]}`, wantCode: http.StatusBadRequest},
		{name: "bad timezone", body: `{"name":"Main","telegram_chat_id":"@main","timezone":"Mars/Olympus"}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(NewHandler(newMemStore(), logger.Nop()))
			rr, resp := do(mux, http.MethodPost, "/channels", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusCreated && (resp.Success || resp.Error == "") {
				t.Errorf("expected error envelope, got %+v", resp)
			}
		})
	}
}

func TestCreateChannelDefaults(t *testing.T) {
	store := newMemStore()
	mux := newMux(NewHandler(store, logger.Nop()))
	do(mux, http.MethodPost, "/channels", `{"name":"Main","telegram_chat_id":"@main"}`)

	ch := store.rows[1]
	if ch.Language != "en" || ch.Timezone != "UTC" || !ch.IsActive {
		t.Errorf("defaults not applied: %+v", ch)
	}
}

func TestUpdateChannelKeepsOmittedFields(t *testing.T) {
	store := newMemStore()
	store.rows[1] = database.Channel{ID: 1, Name: "Main", TelegramChatID: "@main", Language: "tr", Timezone: "Europe/Istanbul", IsActive: true}
	mux := newMux(NewHandler(store, logger.Nop()))

	rr, _ := do(mux, http.MethodPut, "/channels/1", `{"is_active":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	ch := store.rows[1]
	if ch.IsActive || ch.Language != "tr" || ch.Timezone != "Europe/Istanbul" {
		t.Errorf("unexpected update result %+v", ch)
	}
}

func TestChannelNotFound(t *testing.T) {
	mux := newMux(NewHandler(newMemStore(), logger.Nop()))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr, _ := do(mux, method, "/channels/42", `{}`)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", method, rr.Code)
		}
	}

	rr, _ := do(mux, http.MethodGet, "/channels/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rr.Code)
	}
}
