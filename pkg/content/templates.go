package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/sportsapi"
	"github.com/goalcast/core/pkg/telegram"
)

const responsibleGambling = "⚠️ 18+ | Please gamble responsibly."

func renderNews(item rss.Item, body string) string {
	var b strings.Builder
	b.WriteString("📰 ")
	b.WriteString(telegram.Bold(item.Title))
	b.WriteString("\n\n")
	b.WriteString(body)
	if item.Link != "" {
		source := item.SourceName
		if source == "" {
			source = "Read more"
		}
		b.WriteString("\n\n🔗 ")
		b.WriteString(telegram.Link(source, item.Link))
	}
	return b.String()
}

func kickoffLine(f sportsapi.Fixture, loc *time.Location) string {
	parts := []string{"🏆 " + telegram.EscapeHTML(f.League.Name)}
	if k := f.Kickoff(); !k.IsZero() {
		parts = append(parts, "🕒 "+k.In(loc).Format("15:04"))
	}
	if f.Fixture.Venue.Name != "" {
		parts = append(parts, "🏟 "+telegram.EscapeHTML(f.Fixture.Venue.Name))
	}
	return strings.Join(parts, " · ")
}

func renderTips(tips []Tip, loc *time.Location, reasons map[int]string) string {
	var b strings.Builder
	b.WriteString("🎯 <b>Today's betting tips</b>\n")
	for _, tip := range tips {
		b.WriteString("\n⚽ ")
		b.WriteString(telegram.Bold(tip.Fixture.Title()))
		b.WriteString("\n")
		b.WriteString(kickoffLine(tip.Fixture, loc))
		b.WriteString("\n👉 Tip: ")
		b.WriteString(telegram.EscapeHTML(tip.Pick))
		if tip.Odd > 0 {
			fmt.Fprintf(&b, " @ %.2f", tip.Odd)
		}
		if r := reasons[tip.Fixture.ID()]; r != "" {
			b.WriteString("\n💬 ")
			b.WriteString(telegram.EscapeHTML(r))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(responsibleGambling)
	return b.String()
}

func renderAnalysisFallback(f sportsapi.Fixture, odds *sportsapi.Odds, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("🔍 <b>Match preview</b>\n\n")
	b.WriteString(telegram.Bold(f.Title()))
	b.WriteString("\n")
	b.WriteString(kickoffLine(f, loc))
	if f.League.Round != "" {
		b.WriteString("\n📅 ")
		b.WriteString(telegram.EscapeHTML(f.League.Round))
	}
	if odds != nil && odds.MatchWinner != nil {
		home, draw, away := ImpliedProbabilities(*odds.MatchWinner)
		fmt.Fprintf(&b, "\n\n📊 Market view: %s %.0f%% · Draw %.0f%% · %s %.0f%%",
			telegram.EscapeHTML(f.Teams.Home.Name), home*100, draw*100,
			telegram.EscapeHTML(f.Teams.Away.Name), away*100)
	}
	if odds != nil && odds.OverUnder25 != nil {
		if odds.OverUnder25.Over < odds.OverUnder25.Under {
			b.WriteString("\n⚡ Goals expected: the market leans to over 2.5.")
		} else {
			b.WriteString("\n🧱 Tight game expected: the market leans to under 2.5.")
		}
	}
	return b.String()
}

func renderLive(f sportsapi.Fixture, lastGoal *sportsapi.Event) string {
	home, away := f.Score()
	var b strings.Builder
	switch {
	case f.Fixture.Status.Short == "HT":
		b.WriteString("⏸ <b>Half-time</b>\n")
	case f.Elapsed() > 0:
		fmt.Fprintf(&b, "🔴 <b>LIVE %d'</b>\n", f.Elapsed())
	default:
		b.WriteString("🔴 <b>LIVE</b>\n")
	}
	fmt.Fprintf(&b, "<b>%s %d-%d %s</b>\n",
		telegram.EscapeHTML(f.Teams.Home.Name), home, away, telegram.EscapeHTML(f.Teams.Away.Name))
	if lastGoal != nil {
		fmt.Fprintf(&b, "⚽ %d' %s (%s)\n", lastGoal.Time.Elapsed,
			telegram.EscapeHTML(lastGoal.Player.Name), telegram.EscapeHTML(lastGoal.Team.Name))
	}
	b.WriteString("🏆 ")
	b.WriteString(telegram.EscapeHTML(f.League.Name))
	return b.String()
}

func renderSummary(date time.Time, groups []leagueResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Results of %s</b>\n", date.Format("Mon 2 Jan"))
	for _, g := range groups {
		b.WriteString("\n🏆 ")
		b.WriteString(telegram.Bold(g.League))
		b.WriteString("\n")
		for _, f := range g.Fixtures {
			home, away := f.Score()
			fmt.Fprintf(&b, "%s %d-%d %s\n",
				telegram.EscapeHTML(f.Teams.Home.Name), home, away, telegram.EscapeHTML(f.Teams.Away.Name))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
