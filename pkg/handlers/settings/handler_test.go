package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
)

type memStore struct {
	values map[string]json.RawMessage
}

func (m *memStore) ListSettings(context.Context) ([]database.Setting, error) {
	var out []database.Setting
	for k, v := range m.values {
		out = append(out, database.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (m *memStore) UpsertSetting(_ context.Context, key string, value json.RawMessage) (database.Setting, error) {
	m.values[key] = value
	return database.Setting{Key: key, Value: value}, nil
}

type fakeBot struct{ token string }

func (f *fakeBot) SetToken(token string) { f.token = token }

type fakeScorer struct{ terms []string }

func (f *fakeScorer) SetExclusions(terms ...string) { f.terms = terms }

func TestPutSetting(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		body      string
		wantCode  int
		wantToken string
		wantTerms string
	}{
		{name: "toggle automation", key: "automation_enabled", body: `{"value":false}`, wantCode: http.StatusOK},
		{name: "automation must be bool", key: "automation_enabled", body: `{"value":"yes"}`, wantCode: http.StatusBadRequest},
		{name: "bot token swaps client", key: "telegram_bot_token", body: `{"value":"123:abc"}`, wantCode: http.StatusOK, wantToken: "123:abc"},
		{name: "news exclusions apply", key: "news_exclusions", body: `{"value":["tiktok","rumour mill"]}`, wantCode: http.StatusOK, wantTerms: "tiktok|rumour mill"},
		{name: "news exclusions must be a list", key: "news_exclusions", body: `{"value":"tiktok"}`, wantCode: http.StatusBadRequest},
		{name: "free-form key", key: "footer_text", body: `{"value":{"en":"18+"}}`, wantCode: http.StatusOK},
		{name: "bad key", key: "Bad-Key", body: `{"value":1}`, wantCode: http.StatusBadRequest},
		{name: "missing value", key: "footer_text", body: `{}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{}
			scorer := &fakeScorer{}
			store := &memStore{values: map[string]json.RawMessage{}}
			mux := http.NewServeMux()
			mux.HandleFunc("PUT /settings/{key}", NewHandler(store, bot, scorer, logger.Nop()).Put)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/settings/"+tt.key, strings.NewReader(tt.body)))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if bot.token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, bot.token)
			}
			if got := strings.Join(scorer.terms, "|"); got != tt.wantTerms {
				t.Errorf("expected exclusions %q, got %q", tt.wantTerms, got)
			}
			if strings.Contains(rr.Body.String(), "123:abc") {
				t.Error("bot token leaked in response")
			}
		})
	}
}

func TestListSettingsMasksToken(t *testing.T) {
	store := &memStore{values: map[string]json.RawMessage{
		"telegram_bot_token": json.RawMessage(`"123:abc"`),
		"automation_enabled": json.RawMessage(`true`),
	}}
	rr := httptest.NewRecorder()
	NewHandler(store, nil, nil, logger.Nop()).List(rr, httptest.NewRequest(http.MethodGet, "/api/automation/settings", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "123:abc") {
		t.Error("bot token should be masked")
	}
}
