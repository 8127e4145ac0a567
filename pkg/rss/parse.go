package rss

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const summaryMaxRunes = 600

// Source is a feed to poll.
type Source struct {
	ID       int32
	Name     string
	URL      string
	Language string
	Category string
	Priority int32
}

// Item is a cleaned feed entry ready for scoring.
type Item struct {
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Summary    string    `json:"summary"`
	ImageURL   string    `json:"image_url,omitempty"`
	GUID       string    `json:"guid,omitempty"`
	Published  time.Time `json:"published"`
	Categories []string  `json:"categories,omitempty"`

	SourceID   int32  `json:"source_id"`
	SourceName string `json:"source_name"`
	Language   string `json:"language"`
	Category   string `json:"category"`
	Priority   int32  `json:"priority"`
}

// Key identifies the article regardless of which feed carried it.
func (i Item) Key() string {
	if i.Link != "" {
		return i.Link
	}
	if i.GUID != "" {
		return i.GUID
	}
	return strings.ToLower(i.Title)
}

// Parse reads an RSS, Atom or JSON feed document.
func Parse(r io.Reader) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return convertFeed(feed), nil
}

// ParseString is Parse over an in-memory document.
func ParseString(doc string) ([]Item, error) {
	return Parse(strings.NewReader(doc))
}

func convertFeed(feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		item := convertItem(it)
		if item.Title == "" || item.Link == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func convertItem(it *gofeed.Item) Item {
	link := it.Link
	if link == "" && isAbsoluteURL(it.GUID) {
		link = it.GUID
	}

	body := it.Description
	if CleanText(body) == "" {
		body = it.Content
	}

	item := Item{
		Title:      CleanText(it.Title),
		Link:       NormalizeLink(link),
		Summary:    Truncate(CleanText(body), summaryMaxRunes),
		GUID:       it.GUID,
		ImageURL:   extractImage(it),
		Categories: it.Categories,
	}

	switch {
	case it.PublishedParsed != nil:
		item.Published = it.PublishedParsed.UTC()
	case it.UpdatedParsed != nil:
		item.Published = it.UpdatedParsed.UTC()
	}

	return item
}

// extractImage walks the places feeds hide a lead image, best first.
func extractImage(it *gofeed.Item) string {
	if it.Image != nil && isAbsoluteURL(it.Image.URL) {
		return it.Image.URL
	}

	for _, enc := range it.Enclosures {
		if enc != nil && isAbsoluteURL(enc.URL) && looksLikeImage(enc.URL, enc.Type) {
			return enc.URL
		}
	}

	if media, ok := it.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				u := ext.Attrs["url"]
				if !isAbsoluteURL(u) {
					continue
				}
				if medium := ext.Attrs["medium"]; medium != "" && medium != "image" {
					continue
				}
				if name == "thumbnail" || looksLikeImage(u, ext.Attrs["type"]) || ext.Attrs["medium"] == "image" {
					return u
				}
			}
		}
	}

	if src := FirstImage(it.Content); src != "" {
		return src
	}
	return FirstImage(it.Description)
}
