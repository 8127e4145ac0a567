// Package ai wraps the text and image providers used to enrich posts.
// Every caller must treat an error as "fall back to the template".
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/logger"
)

// ErrDisabled is returned by the no-op provider.
var ErrDisabled = errors.New("ai provider disabled")

// TextGenerator produces a completion for a system + user prompt.
type TextGenerator interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ImageGenerator returns a public URL of a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Noop is used when no provider key is configured.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

func (Noop) GenerateImage(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// Enabled reports whether g is a real provider.
func Enabled(g TextGenerator) bool {
	if g == nil {
		return false
	}
	_, noop := g.(Noop)
	return !noop
}

// Close releases provider resources when the implementation holds any.
func Close(g TextGenerator) {
	if c, ok := g.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// New picks the text and image providers from configuration. Images are
// only available through OpenAI.
func New(ctx context.Context, cfg config.AIConfig, httpClient *http.Client, log *logger.Logger) (TextGenerator, ImageGenerator, error) {
	if log == nil {
		log = logger.New("ai")
	}

	var images ImageGenerator = Noop{}
	var openaiClient *OpenAI
	if cfg.OpenAIKey != "" {
		openaiClient = NewOpenAI(OpenAIConfig{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIURL,
			Model:       cfg.OpenAIModel,
			ImageModel:  cfg.ImageModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, httpClient)
		if cfg.ImagesActive {
			images = openaiClient
		}
	}

	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, nil, fmt.Errorf("AI_PROVIDER=gemini requires GEMINI_API_KEY")
		}
		gem, err := NewGemini(ctx, GeminiConfig{
			APIKey:      cfg.GeminiKey,
			Model:       cfg.GeminiModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("action", "ai_provider").Str("provider", gem.Name()).Msg("AI text provider configured")
		return gem, images, nil
	case "none", "off":
		log.Info().Str("action", "ai_provider").Str("provider", "none").Msg("AI disabled by configuration")
		return Noop{}, Noop{}, nil
	default:
		if openaiClient == nil {
			log.Warn().Str("action", "ai_provider").Msg("No OPENAI_API_KEY, posts will use templates only")
			return Noop{}, images, nil
		}
		log.Info().Str("action", "ai_provider").Str("provider", openaiClient.Name()).Msg("AI text provider configured")
		return openaiClient, images, nil
	}
}
