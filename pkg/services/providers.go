package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/sportsapi"
)

// UsageRecorder counts provider requests against their daily limit.
type UsageRecorder interface {
	RecordSportsAPIUsage(ctx context.Context, name string, at time.Time) error
}

// supportedProviders speak the API-Football v3 protocol.
var supportedProviders = map[string]bool{
	"api-football": true,
	"api-sports":   true,
	"rapidapi":     true,
}

// SupportedProvider reports whether rows of this provider can be chained.
func SupportedProvider(name string) bool {
	return supportedProviders[strings.ToLower(strings.TrimSpace(name))]
}

// ClientCache keeps sportsapi clients alive across chain rebuilds so their
// breaker, response cache and rate limiter carry over.
type ClientCache struct {
	mu      sync.Mutex
	clients map[string]*sportsapi.Client
}

func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[string]*sportsapi.Client)}
}

func clientKey(c sportsapi.Config) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", c.Name, c.APIKey, c.BaseURL, c.Timeout, c.RequestsPerMin)
}

func (cc *ClientCache) get(c sportsapi.Config, httpClient *http.Client) *sportsapi.Client {
	if cc == nil {
		return sportsapi.NewClient(c, httpClient)
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	key := clientKey(c)
	if client, ok := cc.clients[key]; ok {
		return client
	}
	client := sportsapi.NewClient(c, httpClient)
	cc.clients[key] = client
	return client
}

// retain drops every client not in keep.
func (cc *ClientCache) retain(keep map[string]bool) {
	if cc == nil {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for key := range cc.clients {
		if !keep[key] {
			delete(cc.clients, key)
		}
	}
}

// Len returns the number of live clients.
func (cc *ClientCache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.clients)
}

// BuildSportsProvider chains the configured sports_apis rows in priority
// order, then the environment key as the last resort. Rows that used up
// their daily limit today are left out. Clients are taken from cache when
// one is given; a nil cache builds fresh clients.
func BuildSportsProvider(rows []database.SportsAPI, cfg config.SportsAPIConfig, httpClient *http.Client, cache *ClientCache, usage UsageRecorder, now time.Time, log *logger.Logger) *sportsapi.MultiProvider {
	if log == nil {
		log = logger.New("sportsapi")
	}

	record := func(name string) {
		if usage == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := usage.RecordSportsAPIUsage(ctx, name, time.Now()); err != nil {
			log.Warn().Err(err).Str("provider", name).Msg("Failed to record sports API usage")
		}
	}

	var providers []sportsapi.Provider
	used := make(map[string]bool)
	for _, row := range rows {
		if !row.IsActive || row.APIKey == "" {
			continue
		}
		if !SupportedProvider(row.Provider) {
			log.Warn().Str("provider", row.Provider).Str("name", row.Name).Msg("Unsupported sports API provider, skipping")
			continue
		}
		if exhausted(row, now) {
			log.Info().Str("name", row.Name).Int32("daily_limit", row.DailyLimit).Msg("Sports API daily limit reached")
			continue
		}
		c := sportsapi.DefaultConfig(row.APIKey)
		c.Name = row.Name
		c.Timeout = cfg.Timeout
		c.RequestsPerMin = cfg.RequestsPerMin
		c.OnRequest = record
		if row.BaseURL != "" {
			c.BaseURL = row.BaseURL
		}
		used[clientKey(c)] = true
		providers = append(providers, cache.get(c, httpClient))
	}

	if cfg.APIKey != "" {
		c := sportsapi.DefaultConfig(cfg.APIKey)
		c.Name = "env"
		c.BaseURL = cfg.BaseURL
		c.Timeout = cfg.Timeout
		c.RequestsPerMin = cfg.RequestsPerMin
		used[clientKey(c)] = true
		providers = append(providers, cache.get(c, httpClient))
	}

	cache.retain(used)
	return sportsapi.NewMultiProvider(log, providers...)
}

func exhausted(row database.SportsAPI, now time.Time) bool {
	if row.DailyLimit <= 0 || row.UsageDate == nil {
		return false
	}
	y1, m1, d1 := row.UsageDate.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2 && row.RequestsToday >= row.DailyLimit
}

type SportsAPIStore interface {
	UsageRecorder
	ListSportsAPIs(ctx context.Context, activeOnly bool) ([]database.SportsAPI, error)
}

// SportsProviders rebuilds the provider chain when the sports_apis table
// changed, a new day started or the chain got old, and delegates to it
// otherwise.
type SportsProviders struct {
	store      SportsAPIStore
	cfg        config.SportsAPIConfig
	httpClient *http.Client
	logger     *logger.Logger
	now        func() time.Time
	clients    *ClientCache

	mu      sync.Mutex
	current *sportsapi.MultiProvider
	day     string
	builtAt time.Time
	dirty   bool
}

// Rebuilt at least this often so daily limits reached mid-day apply.
const providerRefresh = 30 * time.Minute

var _ sportsapi.Provider = (*SportsProviders)(nil)

func NewSportsProviders(store SportsAPIStore, cfg config.SportsAPIConfig, httpClient *http.Client) *SportsProviders {
	return &SportsProviders{
		store:      store,
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.New("sportsapi"),
		now:        time.Now,
		clients:    NewClientCache(),
	}
}

// Invalidate forces a rebuild on next use.
func (p *SportsProviders) Invalidate() {
	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()
}

// Chain returns the current provider chain.
func (p *SportsProviders) Chain(ctx context.Context) *sportsapi.MultiProvider {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	day := now.UTC().Format("2006-01-02")
	if p.current != nil && !p.dirty && p.day == day && now.Sub(p.builtAt) < providerRefresh {
		return p.current
	}

	rows, err := p.store.ListSportsAPIs(ctx, true)
	if err != nil {
		p.logger.Error().Err(err).Str("action", "list_sports_apis_failed").Msg("Using environment provider only")
		rows = nil
	}
	p.current = BuildSportsProvider(rows, p.cfg, p.httpClient, p.clients, p.store, now, p.logger)
	p.day, p.builtAt, p.dirty = day, now, false
	return p.current
}

func (p *SportsProviders) Name() string {
	return p.Chain(context.Background()).Name()
}

func (p *SportsProviders) FixturesByDate(ctx context.Context, date time.Time, tz string) ([]sportsapi.Fixture, error) {
	return p.Chain(ctx).FixturesByDate(ctx, date, tz)
}

func (p *SportsProviders) LiveFixtures(ctx context.Context) ([]sportsapi.Fixture, error) {
	return p.Chain(ctx).LiveFixtures(ctx)
}

func (p *SportsProviders) FixtureEvents(ctx context.Context, fixtureID int) ([]sportsapi.Event, error) {
	return p.Chain(ctx).FixtureEvents(ctx, fixtureID)
}

func (p *SportsProviders) FixtureOdds(ctx context.Context, fixtureID int) (*sportsapi.Odds, error) {
	return p.Chain(ctx).FixtureOdds(ctx, fixtureID)
}
