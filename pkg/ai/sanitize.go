package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	codeFence      = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	boldMarkdown   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicMarkdown = regexp.MustCompile(`(^|\s)\*([^*\s][^*]*)\*`)
	headingMarkup  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	// "(Note: this is a machine translation ...)" and similar.
	inlineDisclaimer = regexp.MustCompile(`(?i)[\(\[]\s*(note|disclaimer|translation note)\s*:[^\)\]]*[\)\]]`)
	lineDisclaimer   = regexp.MustCompile(`(?im)^\s*(note|disclaimer|as an ai( language model)?)\b.*$`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// Sanitize removes markdown and model chatter from provider output so it
// can be embedded into Telegram HTML.
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = codeFence.ReplaceAllString(text, "")
	text = boldMarkdown.ReplaceAllString(text, "$1")
	text = italicMarkdown.ReplaceAllString(text, "$1$2")
	text = headingMarkup.ReplaceAllString(text, "")
	text = inlineDisclaimer.ReplaceAllString(text, "")
	text = lineDisclaimer.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(strings.Join(strings.Fields(l), " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = strings.Trim(text, "\n \"")
	return text
}

func clampRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
