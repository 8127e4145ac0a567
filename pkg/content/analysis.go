package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/goalcast/core/pkg/sportsapi"
	"github.com/goalcast/core/pkg/telegram"
	"github.com/goalcast/core/pkg/utils"
)

// AnalysisGenerator previews the most interesting upcoming fixture.
type AnalysisGenerator struct{ *Deps }

func (g *AnalysisGenerator) Type() string { return TypeAnalysis }

func (g *AnalysisGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	ranked, err := g.upcomingRanked(ctx, req)
	if err != nil {
		return nil, err
	}

	for i, sf := range ranked {
		if i == fixtureCandidates {
			break
		}
		key := "analysis:" + utils.GenerateFixtureSlug(sf.Teams.Home.Name, sf.Teams.Away.Name, sf.ID())
		if !g.unused(ctx, req, TypeAnalysis, key) {
			continue
		}

		odds, err := g.Matches.FixtureOdds(ctx, sf.ID())
		if err != nil {
			odds = nil
		}
		return g.render(ctx, req, sf.Fixture, odds, key), nil
	}
	return nil, ErrNoContent
}

func (g *AnalysisGenerator) render(ctx context.Context, req Request, f sportsapi.Fixture, odds *sportsapi.Odds, key string) *Content {
	loc := g.location(req)
	c := &Content{
		Type:  TypeAnalysis,
		Title: "Preview: " + f.Title(),
		Keys:  []string{key},
	}

	var facts strings.Builder
	fmt.Fprintf(&facts, "Match: %s\nCompetition: %s", f.Title(), f.League.Name)
	if f.League.Round != "" {
		fmt.Fprintf(&facts, " (%s)", f.League.Round)
	}
	fmt.Fprintf(&facts, "\nKickoff: %s", f.Kickoff().In(loc).Format("Mon 2 Jan 15:04 MST"))
	if f.Fixture.Venue.Name != "" {
		fmt.Fprintf(&facts, "\nVenue: %s, %s", f.Fixture.Venue.Name, f.Fixture.Venue.City)
	}
	if odds != nil && odds.MatchWinner != nil {
		fmt.Fprintf(&facts, "\nOdds 1X2: %.2f / %.2f / %.2f", odds.MatchWinner.Home, odds.MatchWinner.Draw, odds.MatchWinner.Away)
	}

	preview := g.complete(ctx, req,
		"You write short football match previews for Telegram: one paragraph of context and one line with the key battle. Only use the facts given. No markdown.",
		facts.String())
	if preview != "" {
		c.AIUsed = true
		c.Text = "🔍 " + telegram.Bold(f.Title()) + "\n" + kickoffLine(f, loc) + "\n\n" + telegram.EscapeHTML(preview)
	} else {
		c.Text = renderAnalysisFallback(f, odds, loc)
	}

	c.ImageURL = g.image(ctx, req, "",
		fmt.Sprintf("Dramatic football match poster for %s, abstract players, no text, no logos", f.Title()))

	g.localize(ctx, req, c)
	return c
}
