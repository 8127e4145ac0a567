package content

import (
	"context"
	"strconv"

	"github.com/goalcast/core/pkg/telegram"
)

// PollGenerator asks the channel to predict the top upcoming fixture.
type PollGenerator struct{ *Deps }

func (g *PollGenerator) Type() string { return TypePolls }

func (g *PollGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	ranked, err := g.upcomingRanked(ctx, req)
	if err != nil {
		return nil, err
	}

	for i, sf := range ranked {
		if i == fixtureCandidates {
			break
		}
		key := "poll:" + strconv.Itoa(sf.ID())
		if !g.unused(ctx, req, TypePolls, key) {
			continue
		}

		loc := g.location(req)
		c := &Content{
			Type:  TypePolls,
			Title: "Who wins? " + sf.Title(),
			Keys:  []string{key},
			Text:  "🗳 " + telegram.Bold(sf.Title()) + "\n" + kickoffLine(sf.Fixture, loc),
			Poll: &Poll{
				Question: "Who wins " + sf.Title() + "? (" + sf.League.Name + ")",
				Options:  []string{sf.Teams.Home.Name, "Draw", sf.Teams.Away.Name},
			},
		}
		g.localize(ctx, req, c)
		return c, nil
	}
	return nil, ErrNoContent
}
