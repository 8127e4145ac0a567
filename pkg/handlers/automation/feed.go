package automation

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/database"
	"github.com/gorilla/feeds"
)

const feedItems = 50

// Feed handles GET /api/automation/feed.xml: an RSS feed of recently
// posted content.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	status := database.LogStatusSuccess
	logs, err := h.deps.Logs.ListLogs(r.Context(), database.ListLogsParams{
		Status: &status,
		Limit:  feedItems,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("action", "feed_logs_failed").Msg("Failed to load posted content")
		http.Error(w, "Failed to build feed", http.StatusInternalServerError)
		return
	}

	body, err := buildFeed(logs, strings.TrimRight(h.deps.PublicURL, "/"), h.now())
	if err != nil {
		h.logger.Error().Err(err).Str("action", "feed_render_failed").Msg("Failed to render feed")
		http.Error(w, "Failed to build feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Warn().Err(err).Str("action", "feed_write_failed").Msg("Failed to write feed")
	}
}

func buildFeed(logs []database.AutomationLog, baseURL string, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       "Goalcast posts",
		Link:        &feeds.Link{Href: baseURL + "/"},
		Description: "Recently published football content",
		Author:      &feeds.Author{Name: "Goalcast"},
		Created:     now,
	}

	for _, l := range logs {
		title := strings.ReplaceAll(l.ContentType, "_", " ")
		if l.ChannelID != nil {
			title = fmt.Sprintf("%s (channel %d)", title, *l.ChannelID)
		}
		item := &feeds.Item{
			Id:      fmt.Sprintf("%s/posts/%d", baseURL, l.ID),
			Title:   title,
			Link:    &feeds.Link{Href: baseURL + "/"},
			Created: l.CreatedAt,
		}
		if l.ContentPreview != nil {
			item.Description = *l.ContentPreview
		}
		feed.Items = append(feed.Items, item)
	}

	return feed.ToRss()
}
