package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/models/api"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/scheduler"
	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/services"
	"github.com/goalcast/core/pkg/sportsapi"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeRunner struct {
	timelineDate time.Time
	generateErr  error
	partial      bool
}

func (f *fakeRunner) Generate(_ context.Context, req services.GenerateRequest, _ time.Time) (*services.GenerateResult, error) {
	if f.generateErr != nil {
		if f.partial {
			return &services.GenerateResult{Content: &content.Content{Type: req.ContentType}}, f.generateErr
		}
		return nil, f.generateErr
	}
	return &services.GenerateResult{Content: &content.Content{Type: req.ContentType, Text: "hello"}, Sent: !req.Preview}, nil
}

func (f *fakeRunner) Timeline(_ context.Context, date time.Time) ([]scheduler.Slot, error) {
	f.timelineDate = date
	return []scheduler.Slot{
		{RuleID: 1, At: testNow.Add(-time.Hour)},
		{RuleID: 1, At: testNow.Add(time.Hour)},
	}, nil
}

func (f *fakeRunner) Stats(context.Context, time.Time) (*services.Stats, error) {
	return &services.Stats{Channels: 2}, nil
}

func (f *fakeRunner) RunDue(context.Context, time.Time) (services.RunSummary, error) {
	return services.RunSummary{Due: 2, Posted: 1, Skipped: 1}, nil
}

type fakeDispatcher struct{ calls int }

func (f *fakeDispatcher) DispatchScheduled(context.Context, time.Time) (int, error) {
	f.calls++
	return 3, nil
}

type fakeNews struct{ lang string }

func (f *fakeNews) News(_ context.Context, lang string) ([]rss.Item, error) {
	f.lang = lang
	return []rss.Item{
		{Title: "Weather update", Link: "https://a.example/1", Published: testNow},
		{Title: "Breaking: Real Madrid sign striker in transfer deadline deal", Link: "https://a.example/2", Published: testNow},
	}, nil
}

type fakeFixtures struct{ live bool }

func (f *fakeFixtures) FixturesByDate(context.Context, time.Time, string) ([]sportsapi.Fixture, error) {
	return []sportsapi.Fixture{{}, {}}, nil
}

func (f *fakeFixtures) LiveFixtures(context.Context) ([]sportsapi.Fixture, error) {
	f.live = true
	return nil, nil
}

type fakeLogs struct{ rows []database.AutomationLog }

func (f fakeLogs) ListLogs(context.Context, database.ListLogsParams) ([]database.AutomationLog, error) {
	return f.rows, nil
}

func newHandler(runner *fakeRunner) (*Handler, *fakeDispatcher, *fakeNews, *fakeFixtures) {
	dispatcher := &fakeDispatcher{}
	news := &fakeNews{}
	fixtures := &fakeFixtures{}
	preview := "Kick-off at 17:30"
	channel := int32(4)
	h := NewHandler(Deps{
		Runner:     runner,
		Dispatcher: dispatcher,
		News:       news,
		Fixtures:   fixtures,
		Logs: fakeLogs{rows: []database.AutomationLog{
			{ID: 9, ChannelID: &channel, ContentType: "betting_tips", Status: "success", ContentPreview: &preview, CreatedAt: testNow},
		}},
		PublicURL: "https://goalcast.example/",
	}, logger.Nop())
	h.now = func() time.Time { return testNow }
	return h, dispatcher, news, fixtures
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var resp api.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return resp
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		runner   *fakeRunner
		wantCode int
	}{
		{name: "preview", body: `{"content_type":"news","channel_id":1,"preview":true}`, runner: &fakeRunner{}, wantCode: http.StatusOK},
		{name: "missing channel", body: `{"content_type":"news"}`, runner: &fakeRunner{}, wantCode: http.StatusBadRequest},
		{name: "nothing new", body: `{"content_type":"news","channel_id":1}`, runner: &fakeRunner{generateErr: content.ErrNoContent}, wantCode: http.StatusNotFound},
		{name: "unknown channel", body: `{"content_type":"news","channel_id":8}`, runner: &fakeRunner{generateErr: database.ErrNotFound}, wantCode: http.StatusNotFound},
		{name: "already posted", body: `{"content_type":"news","channel_id":1}`, runner: &fakeRunner{generateErr: fmt.Errorf("%w: content already posted", services.ErrConflict)}, wantCode: http.StatusConflict},
		{name: "telegram refused", body: `{"content_type":"news","channel_id":1}`, runner: &fakeRunner{generateErr: errors.New("chat not found"), partial: true}, wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, _ := newHandler(tt.runner)
			rr := httptest.NewRecorder()
			h.Generate(rr, httptest.NewRequest(http.MethodPost, "/api/automation/generate", strings.NewReader(tt.body)))
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestNewsRanksAndLimits(t *testing.T) {
	h, _, news, _ := newHandler(&fakeRunner{})
	rr := httptest.NewRecorder()
	h.News(rr, httptest.NewRequest(http.MethodGet, "/api/automation/news?language=tr&limit=1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if news.lang != "tr" {
		t.Errorf("expected tr news, got %q", news.lang)
	}
	resp := decode(t, rr)
	items, _ := resp.Data.([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	first, _ := items[0].(map[string]interface{})
	if !strings.Contains(first["title"].(string), "Real Madrid") {
		t.Errorf("expected transfer story first, got %v", first["title"])
	}
}

func TestNewsHonoursConfiguredExclusions(t *testing.T) {
	h, _, _, _ := newHandler(&fakeRunner{})
	h.deps.Scorer = scoring.NewNewsScorer("real madrid")
	rr := httptest.NewRecorder()
	h.News(rr, httptest.NewRequest(http.MethodGet, "/api/automation/news", nil))

	items, _ := decode(t, rr).Data.([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected the excluded story to be dropped, got %d items", len(items))
	}
	if first, _ := items[0].(map[string]interface{}); first["title"] != "Weather update" {
		t.Errorf("unexpected item %v", first["title"])
	}
}

func TestMatchesLive(t *testing.T) {
	h, _, _, fixtures := newHandler(&fakeRunner{})
	rr := httptest.NewRecorder()
	h.Matches(rr, httptest.NewRequest(http.MethodGet, "/api/automation/matches?live=true", nil))
	if rr.Code != http.StatusOK || !fixtures.live {
		t.Errorf("expected live fixtures, code=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Matches(rr, httptest.NewRequest(http.MethodGet, "/api/automation/matches?date=14-03-2026", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rr.Code)
	}
}

func TestTimeline(t *testing.T) {
	runner := &fakeRunner{}
	h, _, _, _ := newHandler(runner)
	rr := httptest.NewRecorder()
	h.Timeline(rr, httptest.NewRequest(http.MethodGet, "/api/automation/timeline?date=2026-03-15", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if runner.timelineDate.Format("2006-01-02") != "2026-03-15" {
		t.Errorf("unexpected timeline date %v", runner.timelineDate)
	}
	meta, _ := decode(t, rr).Meta.(map[string]interface{})
	if meta["upcoming"] != float64(1) {
		t.Errorf("expected 1 upcoming slot, got %v", meta["upcoming"])
	}
}

func TestCronRunsBoth(t *testing.T) {
	h, dispatcher, _, _ := newHandler(&fakeRunner{})
	rr := httptest.NewRecorder()
	h.Cron(rr, httptest.NewRequest(http.MethodPost, "/api/automation/cron", nil))

	if rr.Code != http.StatusOK || dispatcher.calls != 1 {
		t.Fatalf("expected dispatch, code=%d calls=%d", rr.Code, dispatcher.calls)
	}
	data, _ := decode(t, rr).Data.(map[string]interface{})
	if data["manual_posts"] != float64(3) {
		t.Errorf("unexpected cron result %v", data)
	}
}

func TestFeed(t *testing.T) {
	h, _, _, _ := newHandler(&fakeRunner{})
	rr := httptest.NewRecorder()
	h.Feed(rr, httptest.NewRequest(http.MethodGet, "/api/automation/feed.xml", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"<rss", "betting tips (channel 4)", "Kick-off at 17:30", "https://goalcast.example/posts/9"} {
		if !strings.Contains(body, want) {
			t.Errorf("feed missing %q", want)
		}
	}
}
