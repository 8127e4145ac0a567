package utils

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// NormalizeSlug creates a URL-friendly slug using the gosimple/slug library.
// Accented and non-latin letters are transliterated.
func NormalizeSlug(text string) string {
	if text == "" {
		return ""
	}
	return slug.Make(text)
}

// GenerateFixtureSlug creates a stable slug for a fixture
func GenerateFixtureSlug(homeTeam, awayTeam string, fixtureID int) string {
	if homeTeam == "" {
		homeTeam = "home"
	}
	if awayTeam == "" {
		awayTeam = "away"
	}
	return NormalizeSlug(homeTeam + " vs " + awayTeam + " " + strconv.Itoa(fixtureID))
}

// GenerateHeadlineSlug slugs the first maxWords significant words of a
// headline. Two outlets rewording the tail of the same headline collide.
func GenerateHeadlineSlug(title string, maxWords int) string {
	words := strings.Split(NormalizeSlug(title), "-")

	kept := make([]string, 0, maxWords)
	for _, w := range words {
		if w == "" || headlineStopWords[w] {
			continue
		}
		kept = append(kept, w)
		if maxWords > 0 && len(kept) == maxWords {
			break
		}
	}

	if len(kept) == 0 {
		return "headline"
	}
	return strings.Join(kept, "-")
}

var headlineStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "to": true,
	"in": true, "on": true, "for": true, "at": true, "as": true, "is": true,
	"with": true, "after": true, "vs": true, "v": true,
}
