// Package content turns news and match data into ready-to-post Telegram
// messages, one generator per content type.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goalcast/core/pkg/ai"
	"github.com/goalcast/core/pkg/database"
	"github.com/goalcast/core/pkg/logger"
	"github.com/goalcast/core/pkg/rss"
	"github.com/goalcast/core/pkg/scoring"
	"github.com/goalcast/core/pkg/sportsapi"
)

const (
	TypeNews         = "news"
	TypeBettingTips  = "betting_tips"
	TypeAnalysis     = "analysis"
	TypeLiveUpdates  = "live_updates"
	TypeCoupons      = "coupons"
	TypeDailySummary = "daily_summary"
	TypePolls        = "polls"
)

// Types lists every supported content type.
var Types = []string{
	TypeNews, TypeBettingTips, TypeAnalysis, TypeLiveUpdates,
	TypeCoupons, TypeDailySummary, TypePolls,
}

// ValidType reports whether t is a known content type.
func ValidType(t string) bool {
	for _, known := range Types {
		if known == t {
			return true
		}
	}
	return false
}

// ErrNoContent means the generator found nothing new for the channel.
var ErrNoContent = errors.New("no fresh content available")

// Request describes what to generate and for whom.
type Request struct {
	Channel      database.Channel
	UseAI        bool
	IncludeImage bool
	Now          time.Time
}

// Language returns the channel language, "en" when unset.
func (r Request) Language() string {
	if l := strings.ToLower(strings.TrimSpace(r.Channel.Language)); l != "" {
		return l
	}
	return "en"
}

type Poll struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Content is a generated post. Keys are recorded in content_uniqueness
// under Type once the post went out.
type Content struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	ImageURL string   `json:"image_url,omitempty"`
	Link     string   `json:"link,omitempty"`
	Poll     *Poll    `json:"poll,omitempty"`
	Keys     []string `json:"keys"`
	AIUsed   bool     `json:"ai_used"`
}

// Generator produces one post of its content type.
type Generator interface {
	Type() string
	Generate(ctx context.Context, req Request) (*Content, error)
}

// NewsSource returns cleaned feed items for a language.
type NewsSource interface {
	News(ctx context.Context, language string) ([]rss.Item, error)
}

// CouponSource lists coupons valid at now.
type CouponSource interface {
	ListActiveCoupons(ctx context.Context, now time.Time) ([]database.Coupon, error)
}

// Deduper answers whether a key was already posted to a channel.
type Deduper interface {
	IsUsed(ctx context.Context, channelID int32, contentType, key string) (bool, error)
}

// Deps are shared by all generators. Nil sources make the generators that
// need them return ErrNoContent.
type Deps struct {
	News     NewsSource
	Matches  sportsapi.Provider
	Coupons  CouponSource
	Text     ai.TextGenerator
	Images   ai.ImageGenerator
	Dedupe   Deduper
	Scorer   *scoring.NewsScorer
	Timezone *time.Location
	Logger   *logger.Logger
}

func (d *Deps) defaults() {
	if d.Text == nil {
		d.Text = ai.Noop{}
	}
	if d.Images == nil {
		d.Images = ai.Noop{}
	}
	if d.Scorer == nil {
		d.Scorer = scoring.NewNewsScorer()
	}
	if d.Timezone == nil {
		d.Timezone = time.UTC
	}
	if d.Logger == nil {
		d.Logger = logger.New("content")
	}
}

// Registry maps content types to generators.
type Registry struct {
	generators map[string]Generator
}

// NewRegistry wires every built-in generator to deps.
func NewRegistry(deps Deps) *Registry {
	deps.defaults()
	d := &deps

	r := &Registry{generators: make(map[string]Generator)}
	for _, g := range []Generator{
		&NewsGenerator{d},
		&TipsGenerator{d},
		&AnalysisGenerator{d},
		&LiveGenerator{d},
		&CouponsGenerator{d},
		&SummaryGenerator{d},
		&PollGenerator{d},
	} {
		r.Register(g)
	}
	return r
}

// Register adds or replaces a generator.
func (r *Registry) Register(g Generator) {
	r.generators[g.Type()] = g
}

func (r *Registry) Get(contentType string) (Generator, bool) {
	g, ok := r.generators[contentType]
	return g, ok
}

// Generate runs the generator for contentType.
func (r *Registry) Generate(ctx context.Context, contentType string, req Request) (*Content, error) {
	g, ok := r.Get(contentType)
	if !ok {
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	return g.Generate(ctx, req)
}

// unused reports whether key is still free on the channel. Dedupe errors
// count as used so a broken store never causes repeats.
func (d *Deps) unused(ctx context.Context, req Request, contentType string, keys ...string) bool {
	if d.Dedupe == nil {
		return true
	}
	for _, k := range keys {
		used, err := d.Dedupe.IsUsed(ctx, req.Channel.ID, contentType, k)
		if err != nil {
			d.Logger.Error().
				Err(err).
				Str("action", "dedupe_check_failed").
				Int32("channel_id", req.Channel.ID).
				Str("content_type", contentType).
				Msg("Uniqueness check failed")
			return false
		}
		if used {
			return false
		}
	}
	return true
}

func (d *Deps) aiEnabled(req Request) bool {
	return req.UseAI && ai.Enabled(d.Text)
}

// complete asks the text provider and returns "" on any failure.
func (d *Deps) complete(ctx context.Context, req Request, system, prompt string) string {
	if !d.aiEnabled(req) {
		return ""
	}
	text, err := d.Text.Complete(ctx, system, prompt)
	if err != nil {
		d.Logger.Warn().
			Err(err).
			Str("action", "ai_fallback").
			Str("provider", d.Text.Name()).
			Msg("AI completion failed, using template")
		return ""
	}
	return text
}

// image returns existing when set, otherwise an AI image when the request
// wants one. Failures yield "".
func (d *Deps) image(ctx context.Context, req Request, existing, prompt string) string {
	if !req.IncludeImage {
		return ""
	}
	if existing != "" {
		return existing
	}
	if !req.UseAI || prompt == "" {
		return ""
	}
	url, err := d.Images.GenerateImage(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ai.ErrDisabled) {
			d.Logger.Warn().Err(err).Str("action", "image_fallback").Msg("AI image generation failed")
		}
		return ""
	}
	return url
}

// localize translates English template output into the channel language
// when AI is allowed; otherwise English is posted.
func (d *Deps) localize(ctx context.Context, req Request, c *Content) {
	lang := req.Language()
	if lang == "en" || !d.aiEnabled(req) {
		return
	}

	system := "You translate Telegram posts about football. Keep every HTML tag, emoji, number, team and player name unchanged. Reply with the translation only."
	if translated := d.complete(ctx, req, system, fmt.Sprintf("Translate into language code %q:\n\n%s", lang, c.Text)); translated != "" {
		c.Text = translated
		c.AIUsed = true
	}
	if c.Poll != nil {
		if q := d.complete(ctx, req, system, fmt.Sprintf("Translate into language code %q:\n\n%s", lang, c.Poll.Question)); q != "" {
			c.Poll.Question = q
		}
	}
}

// location is the timezone used to render kickoff times for a channel.
func (d *Deps) location(req Request) *time.Location {
	if req.Channel.Timezone != "" {
		if loc, err := time.LoadLocation(req.Channel.Timezone); err == nil {
			return loc
		}
	}
	return d.Timezone
}
