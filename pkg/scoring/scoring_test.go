package scoring

import (
	"reflect"
	"testing"
	"time"

	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/sportsapi"
)

var now = time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)

func TestSetExclusions(t *testing.T) {
	scorer := NewNewsScorer()
	item := rss.Item{Title: "Rumour mill: Salah wanted in Saudi Arabia", Published: now}

	if got, _ := scorer.Score(item, now); got == 0 {
		t.Fatal("item should score before exclusions are configured")
	}
	scorer.SetExclusions("rumour mill")
	if got, matched := scorer.Score(item, now); got != 0 || len(matched) != 1 || matched[0] != "custom_exclude" {
		t.Errorf("configured term should zero the score, got %d %v", got, matched)
	}
	scorer.SetExclusions()
	if got, _ := scorer.Score(item, now); got == 0 {
		t.Error("clearing exclusions should restore the score")
	}
}

func TestNewsScore(t *testing.T) {
	scorer := NewNewsScorer("tiktok")

	tests := []struct {
		name    string
		item    rss.Item
		want    int
		matched []string
	}{
		{
			name:    "official transfer of big club, fresh with image",
			item:    rss.Item{Title: "Official: Arsenal complete transfer", Published: now.Add(-30 * time.Minute), ImageURL: "https://img/x.jpg"},
			want:    40 + 30 + 25 + RecencyHourBonus + ImageBonus,
			matched: []string{"breaking", "transfer", "big_club"},
		},
		{
			name:    "competition result a few hours old",
			item:    rss.Item{Title: "Dortmund beat PSV in the Champions League", Published: now.Add(-3 * time.Hour)},
			want:    25 + 20 + 10 + RecencySixBonus,
			matched: []string{"big_club", "competition", "result"},
		},
		{
			name:    "word boundaries respected",
			item:    rss.Item{Title: "Interview with a winger about feelings", Published: now.Add(-48 * time.Hour)},
			want:    0,
			matched: nil,
		},
		{
			name:    "exclusion zeroes score",
			item:    rss.Item{Title: "Breaking: free bet on Liverpool", Published: now},
			want:    0,
			matched: []string{"exclude"},
		},
		{
			name:    "custom exclusion",
			item:    rss.Item{Title: "Haaland TikTok dance goes viral", Published: now},
			want:    0,
			matched: []string{"custom_exclude"},
		},
		{
			name:    "source priority counts",
			item:    rss.Item{Title: "Quiet news", Priority: 5, Published: now.Add(-20 * time.Hour)},
			want:    5*SourcePriorityMul + RecencyDayBonus,
			matched: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, matched := scorer.Score(tt.item, now)
			if got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
			if !reflect.DeepEqual(matched, tt.matched) {
				t.Errorf("matched = %v, want %v", matched, tt.matched)
			}
		})
	}
}

func TestRank(t *testing.T) {
	items := []rss.Item{
		{Title: "Nothing to see", Published: now.Add(-72 * time.Hour)},
		{Title: "Liverpool win", Link: "a", Published: now.Add(-2 * time.Hour)},
		{Title: "Liverpool win again", Link: "b", Published: now.Add(-90 * time.Minute)},
		{Title: "Breaking: Real Madrid sign striker", Link: "c", Published: now.Add(-5 * time.Hour)},
	}

	ranked := NewNewsScorer().Rank(items, now)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked items, got %d", len(ranked))
	}
	if ranked[0].Link != "c" {
		t.Errorf("top item = %q, want c", ranked[0].Link)
	}
	// equal scores fall back to recency
	if ranked[1].Link != "b" || ranked[2].Link != "a" {
		t.Errorf("tie order = %q, %q; want b, a", ranked[1].Link, ranked[2].Link)
	}
}

func fixture(id, leagueID int, home, away, status string, kickoff time.Time) sportsapi.Fixture {
	var f sportsapi.Fixture
	f.Fixture.ID = id
	f.Fixture.Date = kickoff
	f.Fixture.Status.Short = status
	f.League.ID = leagueID
	f.Teams.Home.Name = home
	f.Teams.Away.Name = away
	return f
}

func TestScoreMatch(t *testing.T) {
	tests := []struct {
		name    string
		fixture sportsapi.Fixture
		want    int
	}{
		{
			name:    "UCL big clubs soon",
			fixture: fixture(1, 2, "Real Madrid", "FC Bayern München", "NS", now.Add(2*time.Hour)),
			want:    50 + 20 + 18 + KickoffSoonBonus,
		},
		{
			name:    "live Premier League",
			fixture: fixture(2, 39, "Man Utd", "Brentford", "2H", now.Add(-time.Hour)),
			want:    40 + 16 + LiveBonus,
		},
		{
			name:    "unknown league tonight",
			fixture: fixture(3, 9999, "Home Town", "Away Town", "NS", now.Add(8*time.Hour)),
			want:    unknownLeagueWeight + KickoffTodayBonus,
		},
		{
			name:    "finished",
			fixture: fixture(4, 135, "Inter", "AC Milan", "FT", now.Add(-3*time.Hour)),
			want:    35 + 14 + 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreMatch(tt.fixture, now); got != tt.want {
				t.Errorf("ScoreMatch() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankMatches(t *testing.T) {
	fixtures := []sportsapi.Fixture{
		fixture(1, 9999, "A", "B", "NS", now.Add(30*time.Hour)),
		fixture(2, 39, "Arsenal", "Chelsea", "NS", now.Add(5*time.Hour)),
		fixture(3, 9999, "C", "D", "NS", now.Add(26*time.Hour)),
	}

	ranked := RankMatches(fixtures, now)
	got := []int{ranked[0].ID(), ranked[1].ID(), ranked[2].ID()}
	want := []int{2, 3, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RankMatches order = %v, want %v", got, want)
	}
}
