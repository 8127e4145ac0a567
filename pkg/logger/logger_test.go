package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	logger := zerolog.New(buf)
	return &Logger{&logger}
}

func TestWithContext(t *testing.T) {
	log := Nop()
	ctx := log.ToContext(context.Background())

	if got := WithContext(ctx, "test"); got != log {
		t.Error("WithContext() did not return the stored logger")
	}
	if got := WithContext(context.Background(), "test"); got == nil {
		t.Error("WithContext() returned nil for empty context")
	}
}

func TestLogPost(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{name: "success", err: nil, wantLevel: "info"},
		{name: "failure", err: errors.New("boom"), wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newBufferLogger(&buf).WithChannel(7, "@goals")
			log.LogPost(7, "news", "success", 42, time.Second, tt.err)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("invalid log line: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["chat"] != "@goals" {
				t.Errorf("chat = %v, want @goals", entry["chat"])
			}
			if entry["content_type"] != "news" {
				t.Errorf("content_type = %v, want news", entry["content_type"])
			}
		})
	}
}
