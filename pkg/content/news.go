package content

import (
	"context"
	"fmt"

	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/telegram"
	"github.com/goalcast/core/pkg/utils"
)

// Candidates checked per run before giving up.
const newsCandidateLimit = 25

// NewsGenerator posts the best-scoring article the channel has not seen.
type NewsGenerator struct{ *Deps }

func (g *NewsGenerator) Type() string { return TypeNews }

func (g *NewsGenerator) Generate(ctx context.Context, req Request) (*Content, error) {
	if g.News == nil {
		return nil, ErrNoContent
	}

	items, err := g.News.News(ctx, req.Language())
	if err != nil {
		return nil, fmt.Errorf("failed to load news: %w", err)
	}

	ranked := g.Scorer.Rank(items, req.Now)
	for i, candidate := range ranked {
		if i == newsCandidateLimit {
			break
		}
		keys := newsKeys(candidate.Item)
		if !g.unused(ctx, req, TypeNews, keys...) {
			continue
		}
		return g.render(ctx, req, candidate.Item, keys), nil
	}
	return nil, ErrNoContent
}

// newsKeys covers both the article link and its headline, so the same
// story from two outlets is posted once.
func newsKeys(item rss.Item) []string {
	return []string{item.Key(), "headline:" + utils.GenerateHeadlineSlug(item.Title, 6)}
}

func (g *NewsGenerator) render(ctx context.Context, req Request, item rss.Item, keys []string) *Content {
	c := &Content{
		Type:  TypeNews,
		Title: item.Title,
		Link:  item.Link,
		Keys:  keys,
	}

	body := telegram.EscapeHTML(rss.Truncate(item.Summary, 500))
	rewritten := g.complete(ctx, req,
		"You are the editor of a football news Telegram channel. Rewrite the story as a short, factual post of two or three sentences. No hashtags, no markdown, no invented facts.",
		fmt.Sprintf("Headline: %s\nSummary: %s\nSource: %s", item.Title, item.Summary, item.SourceName))
	if rewritten != "" {
		body = telegram.EscapeHTML(rewritten)
		c.AIUsed = true
	}

	c.Text = renderNews(item, body)
	c.ImageURL = g.image(ctx, req, item.ImageURL,
		fmt.Sprintf("Editorial football illustration, no text, no logos: %s", item.Title))

	g.localize(ctx, req, c)
	return c
}
