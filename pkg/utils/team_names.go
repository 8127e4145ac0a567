package utils

import (
	"strings"
)

// Tokens that carry no identity in a club name ("FC Barcelona", "Real Betis Balompié").
var clubAffixes = map[string]bool{
	"fc": true, "cf": true, "afc": true, "sc": true, "ac": true, "as": true,
	"ssc": true, "sv": true, "vfb": true, "vfl": true, "tsg": true, "rc": true,
	"cd": true, "ud": true, "sd": true, "fk": true, "sk": true, "club": true,
	"calcio": true, "balompie": true, "football": true, "futbol": true,
	"1899": true, "1900": true, "1904": true, "1909": true, "04": true, "05": true,
}

// Common short forms mapped onto the normalized full name.
var clubAliases = map[string]string{
	"man-utd":           "manchester-united",
	"man-united":        "manchester-united",
	"man-city":          "manchester-city",
	"spurs":             "tottenham-hotspur",
	"tottenham":         "tottenham-hotspur",
	"barca":             "barcelona",
	"psg":               "paris-saint-germain",
	"paris-sg":          "paris-saint-germain",
	"bayern":            "bayern-munchen",
	"bayern-munich":     "bayern-munchen",
	"inter":             "inter-milan",
	"internazionale":    "inter-milan",
	"inter-milano":      "inter-milan",
	"milan":             "ac-milan",
	"atletico":          "atletico-madrid",
	"atl-madrid":        "atletico-madrid",
	"dortmund":          "borussia-dortmund",
	"bvb":               "borussia-dortmund",
	"juve":              "juventus",
	"wolves":            "wolverhampton-wanderers",
	"newcastle":         "newcastle-united",
	"leverkusen":        "bayer-leverkusen",
	"bayer-04-leverkus": "bayer-leverkusen",
}

// NormalizeTeamName reduces a club name to a comparable slug: transliterated,
// lower case, without legal-form affixes, with well known aliases resolved.
func NormalizeTeamName(name string) string {
	base := NormalizeSlug(name)
	if base == "" {
		return ""
	}

	if alias, ok := clubAliases[base]; ok {
		return alias
	}

	parts := strings.Split(base, "-")
	kept := parts[:0]
	for _, p := range parts {
		if !clubAffixes[p] {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return base
	}

	normalized := strings.Join(kept, "-")
	if alias, ok := clubAliases[normalized]; ok {
		return alias
	}
	return normalized
}

