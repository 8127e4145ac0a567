package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goalcast/core/pkg/content"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
)

type newsCacheEntry struct {
	items   []rss.Item
	expires time.Time
}

// NewsService is the content.NewsSource backed by rss_sources. Fetched
// items are cached per language.
type NewsService struct {
	store   RSSStore
	fetcher *rss.Fetcher
	ttl     time.Duration
	logger  *logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]newsCacheEntry
}

var _ content.NewsSource = (*NewsService)(nil)

func NewNewsService(store RSSStore, fetcher *rss.Fetcher, cacheTTL time.Duration) *NewsService {
	return &NewsService{
		store:   store,
		fetcher: fetcher,
		ttl:     cacheTTL,
		logger:  logger.New("news-service"),
		now:     time.Now,
		cache:   make(map[string]newsCacheEntry),
	}
}

// News returns items from the active sources of a language. A language
// without sources of its own falls back to every active source; the
// generators translate when they post.
func (s *NewsService) News(ctx context.Context, language string) ([]rss.Item, error) {
	s.mu.Lock()
	if e, ok := s.cache[language]; ok && s.now().Before(e.expires) {
		s.mu.Unlock()
		return e.items, nil
	}
	s.mu.Unlock()

	sources, err := s.store.ListRSSSources(ctx, true, &language)
	if err != nil {
		return nil, fmt.Errorf("failed to list rss sources: %w", err)
	}
	if len(sources) == 0 {
		if sources, err = s.store.ListRSSSources(ctx, true, nil); err != nil {
			return nil, fmt.Errorf("failed to list rss sources: %w", err)
		}
	}

	items, results := s.fetch(ctx, sources)
	if !cacheable(ctx, results) {
		return items, nil
	}

	s.mu.Lock()
	s.cache[language] = newsCacheEntry{items: items, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return items, nil
}

// cacheable is false for a cancelled fetch or one where every feed failed.
func cacheable(ctx context.Context, results []rss.SourceResult) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, r := range results {
		if r.Err == nil {
			return true
		}
	}
	return len(results) == 0
}

// Refresh fetches every active source, records per-source health and
// drops the cache.
func (s *NewsService) Refresh(ctx context.Context) ([]rss.SourceResult, error) {
	sources, err := s.store.ListRSSSources(ctx, true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list rss sources: %w", err)
	}
	_, results := s.fetch(ctx, sources)
	s.Invalidate()
	return results, nil
}

// Invalidate drops cached items after the source list changed.
func (s *NewsService) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]newsCacheEntry)
	s.mu.Unlock()
}

type SourceTestResult struct {
	Source   database.RSSSource `json:"source"`
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Items    []rss.Item         `json:"items"`
	Duration string             `json:"duration"`
}

// TestSource fetches one source regardless of its active flag.
func (s *NewsService) TestSource(ctx context.Context, id int32) (*SourceTestResult, error) {
	src, err := s.store.GetRSSSource(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, err := s.fetcher.FetchSource(ctx, toSource(src))
	res := &SourceTestResult{Source: src, OK: err == nil, Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		res.Error = err.Error()
	}
	s.recordFetch(ctx, rss.SourceResult{Source: toSource(src), Items: len(items), Err: err})
	if len(items) > 10 {
		items = items[:10]
	}
	res.Items = items
	return res, nil
}

// Seed inserts the sources of a feeds YAML file that are not stored yet.
func (s *NewsService) Seed(ctx context.Context, path string) (int, error) {
	seeds, err := rss.LoadSeedFile(path)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, seed := range seeds {
		active := seed.Active == nil || *seed.Active
		ok, err := s.store.InsertRSSSourceIfMissing(ctx, database.RSSSourceParams{
			Name:     seed.Name,
			URL:      seed.URL,
			Language: seed.Language,
			Category: seed.Category,
			Priority: seed.Priority,
			IsActive: active,
		})
		if err != nil {
			return inserted, fmt.Errorf("failed to insert %s: %w", seed.URL, err)
		}
		if ok {
			inserted++
		}
	}
	s.logger.Info().Str("action", "seed_sources").Int("inserted", inserted).Int("total", len(seeds)).Msg("RSS sources seeded")
	return inserted, nil
}

func (s *NewsService) fetch(ctx context.Context, sources []database.RSSSource) ([]rss.Item, []rss.SourceResult) {
	srcs := make([]rss.Source, len(sources))
	for i, src := range sources {
		srcs[i] = toSource(src)
	}
	items, results := s.fetcher.FetchAll(ctx, srcs)
	for _, r := range results {
		s.recordFetch(ctx, r)
	}
	return items, results
}

func (s *NewsService) recordFetch(ctx context.Context, r rss.SourceResult) {
	var errMsg *string
	if r.Err != nil {
		msg := r.Err.Error()
		errMsg = &msg
	}
	if err := s.store.RecordRSSFetch(ctx, r.Source.ID, s.now(), errMsg, int32(r.Items)); err != nil {
		s.logger.Warn().Err(err).Int32("source_id", r.Source.ID).Msg("Failed to record rss fetch")
	}
}

func toSource(src database.RSSSource) rss.Source {
	return rss.Source{
		ID:       src.ID,
		Name:     src.Name,
		URL:      src.URL,
		Language: src.Language,
		Category: src.Category,
		Priority: src.Priority,
	}
}
