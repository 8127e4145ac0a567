package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/sportsapi"
)

const (
	tipsPerPost       = 3
	fixtureCandidates = 15
)

// Tip is a single pick for a fixture.
type Tip struct {
	Fixture sportsapi.Fixture
	Pick    string
	Odd     float64
}

// ImpliedProbabilities turns 1X2 odds into probabilities with the
// bookmaker margin removed.
func ImpliedProbabilities(o sportsapi.ThreeWay) (home, draw, away float64) {
	if o.Home <= 0 || o.Draw <= 0 || o.Away <= 0 {
		return 0, 0, 0
	}
	h, d, a := 1/o.Home, 1/o.Draw, 1/o.Away
	total := h + d + a
	return h / total, d / total, a / total
}

// DeriveTip picks the favourite of the 1X2 market. When the favourite is
// priced too short or too long to be interesting, the goals market is
// used. Without odds the big-team weights decide.
func DeriveTip(f sportsapi.Fixture, odds *sportsapi.Odds) Tip {
	tip := Tip{Fixture: f}

	if odds != nil && odds.MatchWinner != nil {
		mw := odds.MatchWinner
		pick, odd := f.Teams.Home.Name+" to win", mw.Home
		if mw.Away < odd {
			pick, odd = f.Teams.Away.Name+" to win", mw.Away
		}
		if mw.Draw < odd {
			pick, odd = "Draw", mw.Draw
		}
		if odd >= 1.25 && odd <= 2.6 {
			tip.Pick, tip.Odd = pick, odd
			return tip
		}
		if odds.OverUnder25 != nil {
			if odds.OverUnder25.Over <= odds.OverUnder25.Under {
				tip.Pick, tip.Odd = "Over 2.5 goals", odds.OverUnder25.Over
			} else {
				tip.Pick, tip.Odd = "Under 2.5 goals", odds.OverUnder25.Under
			}
			return tip
		}
		tip.Pick, tip.Odd = pick, odd
		return tip
	}

	if odds != nil && odds.OverUnder25 != nil {
		if odds.OverUnder25.Over <= odds.OverUnder25.Under {
			tip.Pick, tip.Odd = "Over 2.5 goals", odds.OverUnder25.Over
		} else {
			tip.Pick, tip.Odd = "Under 2.5 goals", odds.OverUnder25.Under
		}
		return tip
	}

	home := scoring.TeamWeight(f.Teams.Home.Name)
	away := scoring.TeamWeight(f.Teams.Away.Name)
	switch {
	case home > away+4:
		tip.Pick = f.Teams.Home.Name + " to win"
	case away > home+4:
		tip.Pick = f.Teams.Away.Name + " or draw (double chance)"
	case home > 0 && away > 0:
		tip.Pick = "Both teams to score"
	default:
		tip.Pick = f.Teams.Home.Name + " or draw (double chance)"
	}
	return tip
}

// upcomingRanked returns today's not-yet-started fixtures, best first.
func (d *Deps) upcomingRanked(ctx context.Context, req Request) ([]scoring.ScoredFixture, error) {
	if d.Matches == nil {
		return nil, ErrNoContent
	}
	loc := d.location(req)
	fixtures, err := d.Matches.FixturesByDate(ctx, req.Now.In(loc), loc.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	var upcoming []sportsapi.Fixture
	for _, f := range fixtures {
		if f.IsUpcoming() && f.Kickoff().After(req.Now) {
			upcoming = append(upcoming, f)
		}
	}
	return scoring.RankMatches(upcoming, req.Now), nil
}

// tips derives up to n tips for fixtures whose key is unused under contentType.
func (d *Deps) tips(ctx context.Context, req Request, contentType string, n int) ([]Tip, []string, error) {
	ranked, err := d.upcomingRanked(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var tips []Tip
	var keys []string
	for i, sf := range ranked {
		if i == fixtureCandidates || len(tips) == n {
			break
		}
		key := "tip:" + strconv.Itoa(sf.ID())
		if !d.unused(ctx, req, contentType, key) {
			continue
		}

		odds, err := d.Matches.FixtureOdds(ctx, sf.ID())
		if err != nil {
			d.Logger.Warn().
				Err(err).
				Str("action", "odds_unavailable").
				Int("fixture_id", sf.ID()).
				Msg("Falling back to heuristic tip")
			odds = nil
		}
		tips = append(tips, DeriveTip(sf.Fixture, odds))
		keys = append(keys, key)
	}
	return tips, keys, nil
}

// TipsGenerator posts today's top picks.
type TipsGenerator struct{ *Deps }

func (g *TipsGenerator) Type() string { return TypeBettingTips }

func (g *TipsGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	tips, keys, err := g.tips(ctx, req, TypeBettingTips, tipsPerPost)
	if err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, ErrNoContent
	}

	c := &Content{
		Type:  TypeBettingTips,
		Title: "Betting tips " + req.Now.In(g.location(req)).Format("2 Jan"),
		Keys:  keys,
	}

	reasons := g.reasons(ctx, req, tips)
	c.AIUsed = len(reasons) > 0
	c.Text = renderTips(tips, g.location(req), reasons)
	c.ImageURL = g.image(ctx, req, "", "Football stadium at dusk with floodlights, photorealistic, no text")

	g.localize(ctx, req, c)
	return c, nil
}

// reasons asks the AI for one short line per tip, keyed by fixture id.
func (g *TipsGenerator) reasons(ctx context.Context, req Request, tips []Tip) map[int]string {
	if !g.aiEnabled(req) {
		return nil
	}

	var prompt strings.Builder
	prompt.WriteString("For each pick give one short sentence of reasoning. Answer one line per pick in the form <id>: <sentence>.\n\n")
	for _, t := range tips {
		fmt.Fprintf(&prompt, "%d: %s (%s, kickoff %s). Pick: %s",
			t.Fixture.ID(), t.Fixture.Title(), t.Fixture.League.Name,
			t.Fixture.Kickoff().Format(time.RFC3339), t.Pick)
		if t.Odd > 0 {
			fmt.Fprintf(&prompt, " at %.2f", t.Odd)
		}
		prompt.WriteString("\n")
	}

	answer := g.complete(ctx, req, "You are a cautious football betting analyst. Never promise wins.", prompt.String())
	if answer == "" {
		return nil
	}

	reasons := make(map[int]string)
	for _, line := range strings.Split(answer, "\n") {
		idPart, text, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(strings.TrimLeft(idPart, "-• ")))
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			reasons[id] = text
		}
	}
	return reasons
}
