package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goalcast/core/internal/config"
	"github.com/goalcast/core/pkg/logger"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bold", input: "**Arsenal** win the derby", want: "Arsenal win the derby"},
		{name: "italic", input: "A *huge* night", want: "A huge night"},
		{name: "fences", input: "```\nPlain text\n```", want: "Plain text"},
		{name: "heading", input: "## Preview\nBody", want: "Preview\nBody"},
		{name: "inline note", input: "Great match (Note: machine translated) tonight", want: "Great match tonight"},
		{name: "line note", input: "Real content\nNote: This translation may contain errors.", want: "Real content"},
		{name: "quotes and blank lines", input: "\"One\n\n\n\nTwo\"", want: "One\n\nTwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		msgs, _ := req["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("expected system + user messages, got %d", len(msgs))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"**Bold** preview"},"finish_reason":"stop"}]}`))
	})
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://images.example.com/1.png"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestOpenAIComplete(t *testing.T) {
	server := newOpenAIServer(t)
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1"}, server.Client())
	text, err := client.Complete(context.Background(), "You are a football editor.", "Write a preview")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "Bold preview" {
		t.Errorf("Complete() = %q", text)
	}
}

func TestOpenAIGenerateImage(t *testing.T) {
	server := newOpenAIServer(t)
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1"}, server.Client())
	url, err := client.GenerateImage(context.Background(), strings.Repeat("stadium ", 300))
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if url != "https://images.example.com/1.png" {
		t.Errorf("GenerateImage() = %q", url)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL + "/v1"}, server.Client())
	if _, err := client.Complete(context.Background(), "", "hi"); err == nil {
		t.Error("expected error for 401")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.AIConfig
		wantEnabled bool
		wantImages  bool
		wantErr     bool
	}{
		{name: "no keys", cfg: config.AIConfig{Provider: "openai"}},
		{name: "openai", cfg: config.AIConfig{Provider: "openai", OpenAIKey: "k", ImagesActive: true}, wantEnabled: true, wantImages: true},
		{name: "openai images off", cfg: config.AIConfig{Provider: "openai", OpenAIKey: "k"}, wantEnabled: true},
		{name: "explicit none", cfg: config.AIConfig{Provider: "none", OpenAIKey: "k", ImagesActive: true}},
		{name: "gemini without key", cfg: config.AIConfig{Provider: "gemini"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, images, err := New(context.Background(), tt.cfg, nil, logger.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if Enabled(text) != tt.wantEnabled {
				t.Errorf("Enabled(text) = %v, want %v", Enabled(text), tt.wantEnabled)
			}
			_, noopImages := images.(Noop)
			if noopImages == tt.wantImages {
				t.Errorf("images provider = %T, wantImages %v", images, tt.wantImages)
			}
		})
	}
}

func TestNoop(t *testing.T) {
	if _, err := (Noop{}).Complete(context.Background(), "", ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := (Noop{}).GenerateImage(context.Background(), ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}
