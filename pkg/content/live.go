package content

import (
	"context"
	"fmt"

	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/sportsapi"
)

// Live posts are limited to fixtures at least this interesting.
const liveMinScore = 40

// LiveGenerator posts a score update whenever a live fixture reaches a
// new score or phase.
type LiveGenerator struct{ *Deps }

func (g *LiveGenerator) Type() string { return TypeLiveUpdates }

// LiveKey identifies a score state: fixture, score and match phase.
func LiveKey(f sportsapi.Fixture) string {
	home, away := f.Score()
	return fmt.Sprintf("live:%d:%d-%d:%s", f.ID(), home, away, livePhase(f))
}

func livePhase(f sportsapi.Fixture) string {
	switch f.Fixture.Status.Short {
	case "1H":
		return "1h"
	case "HT":
		return "ht"
	case "2H":
		return "2h"
	case "ET", "BT":
		return "et"
	case "P":
		return "pen"
	default:
		return "live"
	}
}

func (g *LiveGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	if g.Matches == nil {
		return nil, ErrNoContent
	}

	fixtures, err := g.Matches.LiveFixtures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load live fixtures: %w", err)
	}

	for i, sf := range scoring.RankMatches(fixtures, req.Now) {
		if i == fixtureCandidates {
			break
		}
		if sf.Score < liveMinScore {
			continue
		}
		// 0-0 in the first half is not news.
		if home, away := sf.Fixture.Score(); home+away == 0 && sf.Fixture.Fixture.Status.Short == "1H" {
			continue
		}

		key := LiveKey(sf.Fixture)
		if !g.unused(ctx, req, TypeLiveUpdates, key) {
			continue
		}

		var lastGoal *sportsapi.Event
		if events, err := g.Matches.FixtureEvents(ctx, sf.ID()); err == nil {
			for i := len(events) - 1; i >= 0; i-- {
				if events[i].IsGoal() {
					lastGoal = &events[i]
					break
				}
			}
		}

		c := &Content{
			Type:  TypeLiveUpdates,
			Title: sf.Title(),
			Text:  renderLive(sf.Fixture, lastGoal),
			Keys:  []string{key},
		}
		g.localize(ctx, req, c)
		return c, nil
	}
	return nil, ErrNoContent
}
