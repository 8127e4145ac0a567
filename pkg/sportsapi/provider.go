package sportsapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goalcast/core/pkg/logger"
)

// Provider is the subset of the client the content generators rely on.
type Provider interface {
	Name() string
	FixturesByDate(ctx context.Context, date time.Time, tz string) ([]Fixture, error)
	LiveFixtures(ctx context.Context) ([]Fixture, error)
	FixtureEvents(ctx context.Context, fixtureID int) ([]Event, error)
	FixtureOdds(ctx context.Context, fixtureID int) (*Odds, error)
}

var _ Provider = (*Client)(nil)

// MultiProvider asks providers in priority order and returns the first
// successful answer.
type MultiProvider struct {
	providers []Provider
	logger    *logger.Logger
}

// NewMultiProvider keeps the given order; the first entry is tried first.
func NewMultiProvider(log *logger.Logger, providers ...Provider) *MultiProvider {
	if log == nil {
		log = logger.New("sportsapi")
	}
	return &MultiProvider{providers: providers, logger: log}
}

func (m *MultiProvider) Name() string {
	if len(m.providers) == 0 {
		return "none"
	}
	return m.providers[0].Name()
}

// Len reports how many providers are configured.
func (m *MultiProvider) Len() int {
	return len(m.providers)
}

// Providers returns the chain in priority order.
func (m *MultiProvider) Providers() []Provider {
	return append([]Provider(nil), m.providers...)
}

func (m *MultiProvider) FixturesByDate(ctx context.Context, date time.Time, tz string) ([]Fixture, error) {
	return firstOK(m, "fixtures_by_date", func(p Provider) ([]Fixture, error) {
		return p.FixturesByDate(ctx, date, tz)
	})
}

func (m *MultiProvider) LiveFixtures(ctx context.Context) ([]Fixture, error) {
	return firstOK(m, "live_fixtures", func(p Provider) ([]Fixture, error) {
		return p.LiveFixtures(ctx)
	})
}

func (m *MultiProvider) FixtureEvents(ctx context.Context, fixtureID int) ([]Event, error) {
	return firstOK(m, "fixture_events", func(p Provider) ([]Event, error) {
		return p.FixtureEvents(ctx, fixtureID)
	})
}

func (m *MultiProvider) FixtureOdds(ctx context.Context, fixtureID int) (*Odds, error) {
	return firstOK(m, "fixture_odds", func(p Provider) (*Odds, error) {
		return p.FixtureOdds(ctx, fixtureID)
	})
}

func firstOK[T any](m *MultiProvider, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	if len(m.providers) == 0 {
		return zero, ErrNotConfigured
	}

	var errs []error
	for _, p := range m.providers {
		result, err := call(p)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		m.logger.Warn().
			Err(err).
			Str("action", "provider_fallback").
			Str("operation", op).
			Str("provider", p.Name()).
			Msg("Sports provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return zero, errors.Join(errs...)
}
