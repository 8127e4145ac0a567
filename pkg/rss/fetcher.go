package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goalcast/core/pkg/logger"
)

const maxFeedBytes = 5 << 20

// SourceResult reports how a single feed fetch went.
type SourceResult struct {
	Source   Source
	Items    int
	Err      error
	Duration time.Duration
}

// Fetcher downloads feeds concurrently. A failing feed never fails the batch.
type Fetcher struct {
	client    *http.Client
	workers   int
	maxAge    time.Duration
	userAgent string
	logger    *logger.Logger
	now       func() time.Time
}

type FetcherConfig struct {
	Workers   int
	MaxAge    time.Duration
	Timeout   time.Duration
	UserAgent string
}

func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Workers:   6,
		MaxAge:    36 * time.Hour,
		Timeout:   20 * time.Second,
		UserAgent: "goalcast-bot/1.0 (+https://github.com/goalcast/core)",
	}
}

func NewFetcher(client *http.Client, cfg FetcherConfig, log *logger.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = logger.New("rss-fetcher")
	}
	return &Fetcher{
		client:    client,
		workers:   cfg.Workers,
		maxAge:    cfg.MaxAge,
		userAgent: cfg.UserAgent,
		logger:    log,
		now:       time.Now,
	}
}

// FetchSource downloads and parses one feed, stamping items with source info.
func (f *Fetcher) FetchSource(ctx context.Context, src Source) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.LogAPICall(http.MethodGet, src.URL, 0, time.Since(start), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("feed returned status %d", resp.StatusCode)
		f.logger.LogAPICall(http.MethodGet, src.URL, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	items, err := Parse(io.LimitReader(resp.Body, maxFeedBytes))
	f.logger.LogAPICall(http.MethodGet, src.URL, resp.StatusCode, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].SourceID = src.ID
		items[i].SourceName = src.Name
		items[i].Language = src.Language
		items[i].Category = src.Category
		items[i].Priority = src.Priority
	}
	return items, nil
}

// FetchAll fetches every source with bounded concurrency, drops stale items,
// removes duplicates across feeds and returns the rest newest first.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]Item, []SourceResult) {
	results := make([]SourceResult, len(sources))
	perSource := make([][]Item, len(sources))

	var g errgroup.Group
	g.SetLimit(f.workers)

	for idx, src := range sources {
		g.Go(func() error {
			start := time.Now()
			items, err := f.FetchSource(ctx, src)
			results[idx] = SourceResult{
				Source:   src,
				Items:    len(items),
				Err:      err,
				Duration: time.Since(start),
			}
			if err != nil {
				f.logger.Warn().
					Err(err).
					Str("action", "feed_fetch_failed").
					Str("source", src.Name).
					Str("url", src.URL).
					Msg("Skipping feed")
				return nil
			}
			perSource[idx] = items
			return nil
		})
	}
	_ = g.Wait()

	return f.merge(perSource), results
}

func (f *Fetcher) merge(perSource [][]Item) []Item {
	now := f.now()
	seen := make(map[string]int)
	var merged []Item

	for _, items := range perSource {
		for _, item := range items {
			if f.maxAge > 0 && !item.Published.IsZero() && now.Sub(item.Published) > f.maxAge {
				continue
			}
			key := item.Key()
			if idx, ok := seen[key]; ok {
				if item.Priority > merged[idx].Priority {
					merged[idx] = item
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Published.After(merged[j].Published)
	})
	return merged
}
