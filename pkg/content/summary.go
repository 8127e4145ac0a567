package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/sportsapi"
	"github.com/goalcast/core/pkg/telegram"
)

type leagueResults struct {
	League   string
	Fixtures []sportsapi.Fixture
}

// groupByLeague keeps the order in which leagues first appear.
func groupByLeague(ranked []scoring.ScoredFixture) []leagueResults {
	index := map[int]int{}
	var groups []leagueResults
	for _, sf := range ranked {
		i, ok := index[sf.League.ID]
		if !ok {
			i = len(groups)
			index[sf.League.ID] = i
			groups = append(groups, leagueResults{League: sf.League.Name})
		}
		groups[i].Fixtures = append(groups[i].Fixtures, sf.Fixture)
	}
	return groups
}

// SummaryGenerator posts the day's finished results grouped by league.
type SummaryGenerator struct{ *Deps }

func (g *SummaryGenerator) Type() string { return TypeDailySummary }

const summaryMaxFixtures = 30

func (g *SummaryGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	if g.Matches == nil {
		return nil, ErrNoContent
	}

	loc := g.location(req)
	day := req.Now.In(loc)
	key := "summary:" + day.Format("2006-01-02")
	if !g.unused(ctx, req, TypeDailySummary, key) {
		return nil, ErrNoContent
	}

	fixtures, err := g.Matches.FixturesByDate(ctx, day, loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	var finished []sportsapi.Fixture
	for _, f := range fixtures {
		if f.IsFinished() {
			finished = append(finished, f)
		}
	}
	if len(finished) == 0 {
		return nil, ErrNoContent
	}

	ranked := scoring.RankMatches(finished, req.Now)
	if len(ranked) > summaryMaxFixtures {
		ranked = ranked[:summaryMaxFixtures]
	}
	groups := groupByLeague(ranked)

	c := &Content{
		Type:  TypeDailySummary,
		Title: "Results of " + day.Format("2 Jan 2006"),
		Keys:  []string{key},
		Text:  renderSummary(day, groups),
	}

	var facts strings.Builder
	for _, sf := range ranked {
		home, away := sf.Fixture.Score()
		fmt.Fprintf(&facts, "%s: %s %d-%d %s\n", sf.League.Name, sf.Teams.Home.Name, home, away, sf.Teams.Away.Name)
	}
	intro := g.complete(ctx, req,
		"Write a single upbeat sentence introducing today's football results for a Telegram channel. No markdown.",
		facts.String())
	if intro != "" {
		c.AIUsed = true
		c.Text = telegram.EscapeHTML(intro) + "\n\n" + c.Text
	}

	g.localize(ctx, req, c)
	return c, nil
}
