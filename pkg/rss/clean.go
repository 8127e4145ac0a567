package rss

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	blockTagRegex = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6]|/tr)\s*/?>`)
	anyTagRegex   = regexp.MustCompile(`<[^>]*>`)
	cdataRegex    = regexp.MustCompile(`<!\[CDATA\[|\]\]>`)
	imageExtRegex = regexp.MustCompile(`(?i)\.(jpe?g|png|gif|webp)(\?.*)?$`)

	// Boilerplate appended by WordPress and similar feed generators. It only
	// counts as a trailer when it starts a sentence and runs to the end.
	trailerRegex  = regexp.MustCompile(`(?i)(^|[.!?…"»])\s*(?:the post .{1,200} appeared first on .*|\b(?:continue reading|read more)\b.{0,200})$`)
	ellipsisRegex = regexp.MustCompile(`\s*(?:\[…\]|\[\.\.\.\])\s*$`)
)

var trackingParams = []string{"fbclid", "gclid", "mc_cid", "mc_eid", "ocid", "cmpid"}

// StripHTML turns an HTML fragment into plain text with entities decoded.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return html.UnescapeString(s)
	}

	// keep words on either side of block elements apart
	s = blockTagRegex.ReplaceAllString(s, "$0 ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(anyTagRegex.ReplaceAllString(s, " "))
	}
	doc.Find("script, style, iframe, figure figcaption").Remove()
	return doc.Text()
}

// CleanText strips markup and feed boilerplate and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = cdataRegex.ReplaceAllString(s, "")
	s = StripHTML(s)
	s = strings.Join(strings.Fields(s), " ")
	s = trailerRegex.ReplaceAllString(s, "${1}")
	s = ellipsisRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most max runes, preferring a sentence boundary.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:max])

	best := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(cut, sep); idx > best {
			best = idx
		}
	}
	if best > len(cut)*6/10 {
		return cut[:best+1]
	}

	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:-") + "…"
}

// NormalizeLink drops fragments and tracking parameters so the same article
// linked from two feeds compares equal.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		for _, p := range trackingParams {
			if lower == p {
				q.Del(key)
			}
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// FirstImage returns the src of the first <img> in an HTML fragment.
func FirstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := sel.Attr(attr); ok && isAbsoluteURL(src) {
				found = src
				return false
			}
		}
		return true
	})
	return found
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func looksLikeImage(link, mimeType string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return true
	}
	return mimeType == "" && imageExtRegex.MatchString(link)
}
