package services

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/sportsapi"
)

func TestBuildSportsProvider(t *testing.T) {
	today := testNow
	yesterday := testNow.AddDate(0, 0, -1)

	rows := []database.SportsAPI{
		{Name: "primary", Provider: "api-football", APIKey: "k1", IsActive: true, Priority: 1},
		{Name: "spent", Provider: "api-football", APIKey: "k2", IsActive: true, DailyLimit: 100, RequestsToday: 100, UsageDate: &today},
		{Name: "reset", Provider: "api-sports", APIKey: "k3", IsActive: true, DailyLimit: 100, RequestsToday: 100, UsageDate: &yesterday},
		{Name: "unknown", Provider: "football-data", APIKey: "k4", IsActive: true},
		{Name: "no-key", Provider: "api-football", IsActive: true},
		{Name: "off", Provider: "api-football", APIKey: "k5"},
	}

	tests := []struct {
		name     string
		envKey   string
		wantLen  int
		wantHead string
	}{
		{name: "rows only", wantLen: 2, wantHead: "primary"},
		{name: "env appended last", envKey: "env-key", wantLen: 3, wantHead: "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.SportsAPIConfig{APIKey: tt.envKey, Timeout: time.Second, RequestsPerMin: 60}
			p := BuildSportsProvider(rows, cfg, nil, nil, nil, testNow, logger.Nop())
			if p.Len() != tt.wantLen {
				t.Fatalf("expected %d providers, got %d", tt.wantLen, p.Len())
			}
			if p.Name() != tt.wantHead {
				t.Errorf("expected %s first, got %s", tt.wantHead, p.Name())
			}
			chain := p.Providers()
			if tt.envKey != "" && chain[len(chain)-1].Name() != "env" {
				t.Errorf("env provider should be last, got %s", chain[len(chain)-1].Name())
			}
		})
	}
}

type countingSportsStore struct {
	rows  []database.SportsAPI
	lists int
}

func (s *countingSportsStore) ListSportsAPIs(context.Context, bool) ([]database.SportsAPI, error) {
	s.lists++
	return s.rows, nil
}

func (s *countingSportsStore) RecordSportsAPIUsage(context.Context, string, time.Time) error {
	return nil
}

func TestSportsProvidersRebuild(t *testing.T) {
	store := &countingSportsStore{rows: []database.SportsAPI{
		{Name: "primary", Provider: "api-football", APIKey: "k1", IsActive: true},
	}}
	p := NewSportsProviders(store, config.SportsAPIConfig{}, nil)
	clock := testNow
	p.now = func() time.Time { return clock }
	ctx := context.Background()

	first := p.Chain(ctx)
	if p.Chain(ctx) != first || store.lists != 1 {
		t.Fatalf("chain should be reused, listed %d times", store.lists)
	}

	p.Invalidate()
	if p.Chain(ctx) == first || store.lists != 2 {
		t.Errorf("invalidate should rebuild, listed %d times", store.lists)
	}

	clock = clock.Add(providerRefresh + time.Minute)
	p.Chain(ctx)
	if store.lists != 3 {
		t.Errorf("stale chain should rebuild, listed %d times", store.lists)
	}
}

type badGateway struct{}

func (badGateway) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusBadGateway,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("bad gateway")),
		Request:    req,
	}, nil
}

func TestSportsProvidersKeepClientState(t *testing.T) {
	store := &countingSportsStore{rows: []database.SportsAPI{
		{Name: "primary", Provider: "api-football", APIKey: "k1", BaseURL: "https://sports.test", IsActive: true},
	}}
	cfg := config.SportsAPIConfig{Timeout: time.Second, RequestsPerMin: 6000}
	p := NewSportsProviders(store, cfg, &http.Client{Transport: badGateway{}})
	p.logger = logger.Nop()
	p.now = func() time.Time { return testNow }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = p.LiveFixtures(ctx)
	}
	client := p.Chain(ctx).Providers()[0].(*sportsapi.Client)
	if client.BreakerState() != "open" {
		t.Fatalf("breaker state = %s, want open", client.BreakerState())
	}

	p.Invalidate()
	rebuilt := p.Chain(ctx).Providers()[0].(*sportsapi.Client)
	if rebuilt != client {
		t.Fatal("rebuild should reuse the existing client")
	}
	if rebuilt.BreakerState() != "open" {
		t.Errorf("breaker state after rebuild = %s, want open", rebuilt.BreakerState())
	}

	store.rows[0].APIKey = "k2"
	p.Invalidate()
	rotated := p.Chain(ctx).Providers()[0].(*sportsapi.Client)
	if rotated == client {
		t.Error("a new key should get a new client")
	}
	if rotated.BreakerState() != "closed" {
		t.Errorf("breaker state for new key = %s, want closed", rotated.BreakerState())
	}
	if p.clients.Len() != 1 {
		t.Errorf("expected stale clients dropped, have %d", p.clients.Len())
	}
}
