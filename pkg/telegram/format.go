package telegram

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Telegram limits, counted in characters.
const (
	MaxMessageLength = 4096
	MaxCaptionLength = 1024
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// EscapeHTML escapes text for HTML parse mode.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Bold wraps escaped text in <b>.
func Bold(s string) string {
	return "<b>" + EscapeHTML(s) + "</b>"
}

// Link renders an anchor; an empty href yields the escaped label only.
func Link(label, href string) string {
	if href == "" {
		return EscapeHTML(label)
	}
	return `<a href="` + EscapeHTML(href) + `">` + EscapeHTML(label) + "</a>"
}

// SplitMessage cuts HTML text into chunks of at most limit characters,
// preferring paragraph, then line, then word boundaries. Cuts never fall
// inside a tag or an entity; tags open at a cut are closed at the end of
// the chunk and reopened at the start of the next one.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	var open []htmlTag
	for text != "" {
		prefix := reopenTags(open)
		if utf8.RuneCountInString(prefix)+utf8.RuneCountInString(text) <= limit {
			parts = append(parts, prefix+text)
			break
		}
		cut, stack := findCut(text, open, limit-utf8.RuneCountInString(prefix))
		parts = append(parts, prefix+strings.TrimSpace(text[:cut])+closeTags(stack))
		open = stack
		text = strings.TrimSpace(text[cut:])
	}
	return parts
}

type htmlTag struct {
	name string
	open string
}

// Cut preferences, weakest first.
const (
	cutHard = iota
	cutWord
	cutLine
	cutParagraph
)

// findCut returns the byte offset to cut text at and the tags still open
// there. The chunk plus the closing tags it needs fits in budget.
func findCut(text string, open []htmlTag, budget int) (int, []htmlTag) {
	stack := slices.Clone(open)
	var best [cutParagraph + 1]struct {
		at    int
		stack []htmlTag
	}
	record := func(kind, at int) {
		best[kind].at = at
		best[kind].stack = slices.Clone(stack)
	}

	n := 0
	for i := 0; i < len(text) && n <= budget; {
		fits := i > 0 && n+closingLen(stack) <= budget
		switch text[i] {
		case '<':
			end := strings.IndexByte(text[i:], '>')
			if end < 0 {
				end = len(text) - i - 1
			}
			if fits {
				record(cutHard, i)
			}
			tag := text[i : i+end+1]
			stack = applyTag(stack, tag)
			n += utf8.RuneCountInString(tag)
			i += end + 1
			continue
		case '&':
			if end := strings.IndexByte(text[i:], ';'); end > 0 && end <= 10 {
				if fits {
					record(cutHard, i)
				}
				n += end + 1
				i += end + 1
				continue
			}
		case '\n':
			if fits {
				if strings.HasPrefix(text[i:], "\n\n") {
					record(cutParagraph, i)
				} else {
					record(cutLine, i)
				}
			}
		case ' ':
			if fits {
				record(cutWord, i)
			}
		}
		if fits {
			record(cutHard, i)
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		n++
		i += size
	}

	for kind := cutParagraph; kind >= cutHard; kind-- {
		if best[kind].at > 0 {
			return best[kind].at, best[kind].stack
		}
	}
	// A single tag longer than the budget; nothing sensible to keep whole.
	runes := []rune(text)
	if budget < 1 {
		budget = 1
	}
	if budget > len(runes) {
		budget = len(runes)
	}
	return len(string(runes[:budget])), nil
}

func applyTag(stack []htmlTag, tag string) []htmlTag {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
	closing := strings.HasPrefix(inner, "/")
	inner = strings.TrimPrefix(inner, "/")
	if idx := strings.IndexAny(inner, " \t\n/"); idx >= 0 {
		inner = inner[:idx]
	}
	name := strings.ToLower(inner)
	if name == "" || strings.HasSuffix(tag, "/>") {
		return stack
	}
	if !closing {
		return append(stack, htmlTag{name: name, open: tag})
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].name == name {
			return append(stack[:i:i], stack[i+1:]...)
		}
	}
	return stack
}

func closingLen(stack []htmlTag) int {
	n := 0
	for _, t := range stack {
		n += len(t.name) + 3
	}
	return n
}

func closeTags(stack []htmlTag) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i].name + ">")
	}
	return b.String()
}

func reopenTags(stack []htmlTag) string {
	var b strings.Builder
	for _, t := range stack {
		b.WriteString(t.open)
	}
	return b.String()
}

// FitsCaption reports whether text can be sent as a photo caption.
func FitsCaption(text string) bool {
	return utf8.RuneCountInString(text) <= MaxCaptionLength
}
