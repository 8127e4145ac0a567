package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
)

const newsFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>Feed</title>
<item><title>Arsenal sign a striker</title><link>https://news.test/arsenal</link><description>Done deal.</description></item>
</channel></rss>`

type feedTransport struct {
	mu   sync.Mutex
	down bool
}

func (f *feedTransport) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *feedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/rss+xml"}},
		Body:       io.NopCloser(strings.NewReader(newsFeed)),
		Request:    req,
	}, nil
}

type memRSSStore struct {
	mu      sync.Mutex
	sources []database.RSSSource
	lists   int
}

func (s *memRSSStore) ListRSSSources(context.Context, bool, *string) ([]database.RSSSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	return s.sources, nil
}

func (s *memRSSStore) GetRSSSource(_ context.Context, id int32) (database.RSSSource, error) {
	for _, src := range s.sources {
		if src.ID == id {
			return src, nil
		}
	}
	return database.RSSSource{}, database.ErrNotFound
}

func (s *memRSSStore) RecordRSSFetch(context.Context, int32, time.Time, *string, int32) error {
	return nil
}

func (s *memRSSStore) InsertRSSSourceIfMissing(context.Context, database.RSSSourceParams) (bool, error) {
	return false, nil
}

func (s *memRSSStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func newTestNewsService(t *testing.T) (*NewsService, *memRSSStore, *feedTransport) {
	t.Helper()
	store := &memRSSStore{sources: []database.RSSSource{
		{ID: 1, Name: "one", URL: "https://one.test/rss", Language: "en", IsActive: true},
		{ID: 2, Name: "two", URL: "https://two.test/rss", Language: "en", IsActive: true},
	}}
	transport := &feedTransport{}
	fetcher := rss.NewFetcher(&http.Client{Transport: transport}, rss.FetcherConfig{Workers: 2}, logger.Nop())
	svc := NewNewsService(store, fetcher, time.Hour)
	svc.logger = logger.Nop()
	return svc, store, transport
}

func TestNewsCachesSuccessfulFetch(t *testing.T) {
	svc, store, _ := newTestNewsService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		items, err := svc.News(ctx, "en")
		if err != nil {
			t.Fatalf("News() error = %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("expected 1 merged item, got %d", len(items))
		}
	}
	if store.listCount() != 1 {
		t.Errorf("second call should hit the cache, listed %d times", store.listCount())
	}
}

func TestNewsSkipsCacheWhenEveryFeedFails(t *testing.T) {
	svc, store, transport := newTestNewsService(t)
	ctx := context.Background()

	transport.setDown(true)
	items, err := svc.News(ctx, "en")
	if err != nil {
		t.Fatalf("News() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items while feeds are down, got %d", len(items))
	}

	transport.setDown(false)
	items, err = svc.News(ctx, "en")
	if err != nil {
		t.Fatalf("News() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected feeds fetched again after recovery, got %d items", len(items))
	}
	if store.listCount() != 2 {
		t.Errorf("expected 2 fetches, listed %d times", store.listCount())
	}
}

func TestNewsSkipsCacheWhenCancelled(t *testing.T) {
	svc, store, _ := newTestNewsService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.News(ctx, "en"); err != nil {
		t.Fatalf("News() error = %v", err)
	}

	items, err := svc.News(context.Background(), "en")
	if err != nil {
		t.Fatalf("News() error = %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected a fresh fetch after cancellation, got %d items", len(items))
	}
	if store.listCount() != 2 {
		t.Errorf("expected 2 fetches, listed %d times", store.listCount())
	}
}
