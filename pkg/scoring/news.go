package scoring

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goalcast/core/pkg/rss"
)

// KeywordGroup is a weighted set of case-insensitive, word-bounded terms.
type KeywordGroup struct {
	Name    string
	Weight  int
	pattern *regexp.Regexp
}

// NewKeywordGroup compiles terms into a single alternation.
func NewKeywordGroup(name string, weight int, terms ...string) KeywordGroup {
	return KeywordGroup{Name: name, Weight: weight, pattern: compileTerms(terms)}
}

// Match reports whether any term of the group occurs in text.
func (g KeywordGroup) Match(text string) bool {
	return g.pattern != nil && g.pattern.MatchString(text)
}

func compileTerms(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Score weights.
const (
	RecencyHourBonus  = 30
	RecencySixBonus   = 20
	RecencyDayBonus   = 10
	ImageBonus        = 10
	SourcePriorityMul = 2
)

// DefaultNewsGroups are the keyword groups applied to every headline.
var DefaultNewsGroups = []KeywordGroup{
	NewKeywordGroup("breaking", 40, "breaking", "official", "confirmed", "confirms", "announces", "here we go", "exclusive"),
	NewKeywordGroup("transfer", 30, "transfer", "signs", "signing", "joins", "loan", "deal agreed", "fee", "release clause", "medical", "contract extension"),
	NewKeywordGroup("big_club", 25,
		"Real Madrid", "Barcelona", "Manchester United", "Man Utd", "Manchester City", "Man City",
		"Liverpool", "Arsenal", "Chelsea", "Tottenham", "Bayern", "Dortmund", "PSG", "Paris Saint-Germain",
		"Juventus", "Inter", "AC Milan", "Napoli", "Atletico Madrid"),
	NewKeywordGroup("competition", 20,
		"Champions League", "Europa League", "Conference League", "Premier League", "La Liga", "Serie A",
		"Bundesliga", "Ligue 1", "World Cup", "Euro 2024", "Euros", "FA Cup", "Copa del Rey", "Club World Cup"),
	NewKeywordGroup("star", 15,
		"Mbappe", "Haaland", "Bellingham", "Messi", "Ronaldo", "Salah", "Kane", "Vinicius", "Yamal",
		"Saka", "De Bruyne", "Lewandowski"),
	NewKeywordGroup("manager", 15, "sacked", "appointed", "new manager", "head coach", "resigns", "steps down"),
	NewKeywordGroup("injury", 12, "injury", "injured", "ruled out", "sidelined", "hamstring", "ACL", "surgery"),
	NewKeywordGroup("result", 10, "win", "wins", "beat", "beats", "draw", "defeat", "thrash", "comeback", "late winner", "hat-trick"),
}

// DefaultExclusions zero the score of anything they match.
var DefaultExclusions = NewKeywordGroup("exclude", 0,
	"betting odds", "bet now", "free bet", "casino", "sponsored", "advertorial", "podcast", "quiz",
	"live blog", "as it happened", "women's youth", "u18", "u19", "u21 friendly", "fantasy football", "FPL")

// NewsScorer ranks feed items by keyword weight and freshness.
type NewsScorer struct {
	Groups     []KeywordGroup
	Exclusions []KeywordGroup

	mu     sync.RWMutex
	custom *KeywordGroup
}

// NewNewsScorer returns a scorer with the default groups and the extra
// exclusion terms, which are typically loaded from settings.
func NewNewsScorer(extraExclusions ...string) *NewsScorer {
	s := &NewsScorer{
		Groups:     DefaultNewsGroups,
		Exclusions: []KeywordGroup{DefaultExclusions},
	}
	s.SetExclusions(extraExclusions...)
	return s
}

// SetExclusions replaces the extra exclusion terms. It is safe to call
// while other goroutines score.
func (s *NewsScorer) SetExclusions(terms ...string) {
	var custom *KeywordGroup
	if g := NewKeywordGroup("custom_exclude", 0, terms...); g.pattern != nil {
		custom = &g
	}
	s.mu.Lock()
	s.custom = custom
	s.mu.Unlock()
}

// ScoredItem is a feed item with its score and the groups that fired.
type ScoredItem struct {
	rss.Item
	Score   int      `json:"score"`
	Matched []string `json:"matched,omitempty"`
}

// Score returns the score of a single item at time now.
func (s *NewsScorer) Score(item rss.Item, now time.Time) (int, []string) {
	text := item.Title + " " + item.Summary

	for _, ex := range s.Exclusions {
		if ex.Match(text) {
			return 0, []string{ex.Name}
		}
	}
	s.mu.RLock()
	custom := s.custom
	s.mu.RUnlock()
	if custom != nil && custom.Match(text) {
		return 0, []string{custom.Name}
	}

	score := 0
	var matched []string
	for _, g := range s.Groups {
		if g.Match(text) {
			score += g.Weight
			matched = append(matched, g.Name)
		}
	}

	if !item.Published.IsZero() {
		age := now.Sub(item.Published)
		switch {
		case age < 0:
			// Clock skew on the feed side counts as fresh.
			score += RecencyHourBonus
		case age < time.Hour:
			score += RecencyHourBonus
		case age < 6*time.Hour:
			score += RecencySixBonus
		case age < 24*time.Hour:
			score += RecencyDayBonus
		}
	}

	if item.ImageURL != "" {
		score += ImageBonus
	}
	score += int(item.Priority) * SourcePriorityMul

	return score, matched
}

// Rank scores items and orders them by score desc, then newest first.
// Items scoring zero are dropped.
func (s *NewsScorer) Rank(items []rss.Item, now time.Time) []ScoredItem {
	ranked := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		score, matched := s.Score(item, now)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, ScoredItem{Item: item, Score: score, Matched: matched})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Published.After(ranked[j].Published)
	})
	return ranked
}
