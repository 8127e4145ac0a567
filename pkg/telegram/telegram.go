package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/goalcast/core/pkg/logger"
)

// ErrNoToken is returned when no bot token is configured.
var ErrNoToken = errors.New("telegram bot token not configured")

// Sender posts to a chat. chat is a numeric id or an @username.
type Sender interface {
	SendMessage(ctx context.Context, chat, text string) (int, error)
	SendPhoto(ctx context.Context, chat, photoURL, caption string) (int, error)
	SendPoll(ctx context.Context, chat, question string, options []string) (int, error)
}

type Config struct {
	Token      string
	Endpoint   string
	Timeout    time.Duration
	DryRun     bool
	MaxRetries int
	RetryDelay time.Duration
}

// Client is a Sender backed by the Bot API. The bot is created on first
// use because creation performs a getMe round trip.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger

	mu    sync.Mutex
	token string
	bot   *tgbotapi.BotAPI
}

var _ Sender = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client, log *logger.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.New("telegram")
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: log, token: cfg.Token}
}

// SetToken swaps the bot token, e.g. after a settings change.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.token {
		return
	}
	c.token = token
	c.bot = nil
}

func (c *Client) getBot() (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bot != nil {
		return c.bot, nil
	}
	if c.token == "" {
		return nil, ErrNoToken
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.token, c.cfg.Endpoint, c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	c.logger.Info().
		Str("action", "bot_ready").
		Str("username", bot.Self.UserName).
		Msg("Telegram bot authorized")
	c.bot = bot
	return bot, nil
}

// chatTarget fills the chat fields of a BaseChat from a string target.
func chatTarget(chat string, base *tgbotapi.BaseChat) error {
	chat = strings.TrimSpace(chat)
	if chat == "" {
		return errors.New("empty chat target")
	}
	if strings.HasPrefix(chat, "@") {
		base.ChannelUsername = chat
		return nil
	}
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat target %q: %w", chat, err)
	}
	base.ChatID = id
	return nil
}

func (c *Client) SendMessage(ctx context.Context, chat, text string) (int, error) {
	msg := tgbotapi.MessageConfig{
		Text:                  text,
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: false,
	}
	if err := chatTarget(chat, &msg.BaseChat); err != nil {
		return 0, err
	}
	return c.send(ctx, "sendMessage", chat, msg)
}

func (c *Client) SendPhoto(ctx context.Context, chat, photoURL, caption string) (int, error) {
	photo := tgbotapi.PhotoConfig{
		BaseFile: tgbotapi.BaseFile{File: tgbotapi.FileURL(photoURL)},
		Caption:  caption,
	}
	if caption != "" {
		photo.ParseMode = tgbotapi.ModeHTML
	}
	if err := chatTarget(chat, &photo.BaseChat); err != nil {
		return 0, err
	}
	return c.send(ctx, "sendPhoto", chat, photo)
}

func (c *Client) SendPoll(ctx context.Context, chat, question string, options []string) (int, error) {
	if len(options) < 2 {
		return 0, errors.New("a poll needs at least two options")
	}
	poll := tgbotapi.SendPollConfig{
		Question:    question,
		Options:     options,
		IsAnonymous: true,
	}
	if err := chatTarget(chat, &poll.BaseChat); err != nil {
		return 0, err
	}
	return c.send(ctx, "sendPoll", chat, poll)
}

func (c *Client) send(ctx context.Context, method, chat string, msg tgbotapi.Chattable) (int, error) {
	if c.cfg.DryRun {
		c.logger.Info().
			Str("action", "dry_run").
			Str("method", method).
			Str("chat", chat).
			Msg("Dry run, message not sent")
		return 0, nil
	}

	bot, err := c.getBot()
	if err != nil {
		return 0, err
	}

	var messageID int
	err = c.withRetry(ctx, method, func() error {
		sent, err := bot.Send(msg)
		if err != nil {
			return err
		}
		messageID = sent.MessageID
		return nil
	})
	return messageID, err
}

// withRetry retries transient failures with exponential backoff.
// Client errors other than 429 are returned immediately.
func (c *Client) withRetry(ctx context.Context, method string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		delay, retryable := c.retryDelay(lastErr, attempt)
		if !retryable || attempt == c.cfg.MaxRetries {
			break
		}

		c.logger.Warn().
			Err(lastErr).
			Str("action", "telegram_retry").
			Str("method", method).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Telegram request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("telegram %s failed: %w", method, lastErr)
}

func (c *Client) retryDelay(err error, attempt int) (time.Duration, bool) {
	delay := time.Duration(1<<uint(attempt-1)) * c.cfg.RetryDelay

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			if apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}
			return delay, true
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return 0, false
		}
	}
	return delay, true
}

// Publish sends text with an optional image. Text that does not fit a
// caption goes out as the photo followed by the text. A failing photo
// degrades to text only. Returns the id of the first message.
func Publish(ctx context.Context, s Sender, chat, text, imageURL string, log *logger.Logger) (int, error) {
	if imageURL != "" {
		if FitsCaption(text) {
			id, err := s.SendPhoto(ctx, chat, imageURL, text)
			if err == nil {
				return id, nil
			}
			logPhotoFallback(log, chat, err)
		} else {
			id, err := s.SendPhoto(ctx, chat, imageURL, "")
			if err == nil {
				if _, err := sendChunks(ctx, s, chat, text); err != nil {
					return id, err
				}
				return id, nil
			}
			logPhotoFallback(log, chat, err)
		}
	}
	return sendChunks(ctx, s, chat, text)
}

func sendChunks(ctx context.Context, s Sender, chat, text string) (int, error) {
	chunks := SplitMessage(text, MaxMessageLength)
	if len(chunks) == 0 {
		return 0, errors.New("empty message")
	}

	first := 0
	for i, chunk := range chunks {
		id, err := s.SendMessage(ctx, chat, chunk)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = id
		}
	}
	return first, nil
}

func logPhotoFallback(log *logger.Logger, chat string, err error) {
	if log == nil {
		return
	}
	log.Warn().
		Err(err).
		Str("action", "photo_fallback").
		Str("chat", chat).
		Msg("Photo send failed, posting text only")
}
