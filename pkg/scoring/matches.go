package scoring

import (
	"sort"
	"time"

	"github.com/goalcast/core/pkg/sportsapi"
	"github.com/goalcast/core/pkg/utils"
)

// API-Football league ids.
var leagueWeights = map[int]int{
	2:   50, // UEFA Champions League
	3:   35, // UEFA Europa League
	848: 25, // UEFA Conference League
	1:   50, // World Cup
	4:   45, // Euro Championship
	39:  40, // Premier League
	140: 38, // La Liga
	135: 35, // Serie A
	78:  35, // Bundesliga
	61:  30, // Ligue 1
	45:  20, // FA Cup
	143: 20, // Copa del Rey
	137: 15, // Coppa Italia
	81:  15, // DFB Pokal
	88:  15, // Eredivisie
	94:  15, // Primeira Liga
	203: 15, // Super Lig
}

var bigTeams = map[string]int{
	"real-madrid":         20,
	"barcelona":           20,
	"manchester-city":     18,
	"manchester-united":   16,
	"liverpool":           18,
	"arsenal":             16,
	"chelsea":             14,
	"tottenham-hotspur":   10,
	"bayern-munchen":      18,
	"borussia-dortmund":   12,
	"paris-saint-germain": 16,
	"juventus":            14,
	"inter-milan":         14,
	"ac-milan":            12,
	"napoli":              10,
	"atletico-madrid":     12,
	"bayer-leverkusen":    10,
}

const (
	unknownLeagueWeight = 5
	LiveBonus           = 25
	KickoffSoonBonus    = 20
	KickoffTodayBonus   = 10
)

// ScoredFixture is a fixture with its attention score.
type ScoredFixture struct {
	sportsapi.Fixture
	Score int `json:"score"`
}

// TeamWeight returns the big-club bonus for a team name, 0 for others.
func TeamWeight(name string) int {
	return bigTeams[utils.NormalizeTeamName(name)]
}

// ScoreMatch sums league weight, big-team bonuses, live bonus and
// kickoff proximity.
func ScoreMatch(f sportsapi.Fixture, now time.Time) int {
	score, ok := leagueWeights[f.League.ID]
	if !ok {
		score = unknownLeagueWeight
	}

	score += TeamWeight(f.Teams.Home.Name)
	score += TeamWeight(f.Teams.Away.Name)

	if f.IsLive() {
		score += LiveBonus
	}

	if f.IsUpcoming() {
		until := f.Kickoff().Sub(now)
		switch {
		case until >= 0 && until <= 3*time.Hour:
			score += KickoffSoonBonus
		case until > 3*time.Hour && until <= 24*time.Hour:
			score += KickoffTodayBonus
		}
	}
	return score
}

// RankMatches orders fixtures by score desc, then earliest kickoff.
func RankMatches(fixtures []sportsapi.Fixture, now time.Time) []ScoredFixture {
	ranked := make([]ScoredFixture, 0, len(fixtures))
	for _, f := range fixtures {
		ranked = append(ranked, ScoredFixture{Fixture: f, Score: ScoreMatch(f, now)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Kickoff().Before(ranked[j].Kickoff())
	})
	return ranked
}
