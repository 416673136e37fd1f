package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const botToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func TestSecureHandler_SanitizesSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "telegram token key", key: "TELEGRAM_BOT_TOKEN", value: "whatever", wantMask: true},
		{name: "database url key", key: "database_url", value: "sqlite:///bills.db", wantMask: true},
		{name: "portal password key", key: "bsa_password", value: "hunter2", wantMask: true},
		{name: "encryption key", key: "encryption_key", value: "c2VjcmV0", wantMask: true},
		{name: "cookie header", key: "Cookie", value: "ASP.NET_SessionId=abc", wantMask: true},
		{name: "keyword inside key", key: "portal_password_hint", value: "x", wantMask: true},
		{name: "account number is kept", key: "account", value: "302913026", wantMask: false},
		{name: "address is kept", key: "address", value: "3040 ALVINA", wantMask: false},
		{name: "primary_key is kept", key: "primary_key", value: "7", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewSecureLogger(&buf, true)
			logger.Info("test", tt.key, tt.value)

			output := buf.String()
			masked := strings.Contains(output, MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v; output: %s", masked, tt.wantMask, output)
			}
			if tt.wantMask && strings.Contains(output, tt.value) {
				t.Errorf("value %q leaked: %s", tt.value, output)
			}
		})
	}
}

func TestSecureHandler_SanitizesSensitivePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		wantMask bool
	}{
		{name: "bare bot token", value: botToken, wantMask: true},
		{name: "sealed value", value: "enc:Zm9vYmFyYmF6cXV4", wantMask: true},
		{name: "bearer token", value: "Bearer abc.def", wantMask: true},
		{name: "dollar amount", value: "$116.97", wantMask: false},
		{name: "due date", value: "2025-03-15", wantMask: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			NewSecureLogger(&buf, true).Info("test", "value", tt.value)

			masked := strings.Contains(buf.String(), MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v; output: %s", masked, tt.wantMask, buf.String())
			}
		})
	}
}

func TestScrub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bot api url",
			in:   `Post "https://api.telegram.org/bot` + botToken + `/getUpdates": timeout`,
			want: `Post "https://api.telegram.org/bot` + MaskValue + `/getUpdates": timeout`,
		},
		{
			name: "postgres dsn",
			in:   "connect postgres://bills:s3cret@db:5432/water failed",
			want: "connect postgres://bills:" + MaskValue + "@db:5432/water failed",
		},
		{
			name: "plain url untouched",
			in:   "https://bsaonline.com/?uid=305",
			want: "https://bsaonline.com/?uid=305",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Scrub(tt.in); got != tt.want {
				t.Errorf("Scrub() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecureHandler_ScrubsMessagesAndErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)

	err := errors.New(`Get "https://api.telegram.org/bot` + botToken + `/getMe": EOF`)
	logger.Error("bot api failed for postgres://u:pw@db/x", "error", err)

	output := buf.String()
	if strings.Contains(output, botToken) {
		t.Errorf("token leaked: %s", output)
	}
	if strings.Contains(output, ":pw@") {
		t.Errorf("password leaked: %s", output)
	}
	if !strings.Contains(output, "getMe") {
		t.Errorf("expected the rest of the error to be kept: %s", output)
	}
}

func TestSecureHandler_LogLevels(t *testing.T) {
	t.Parallel()

	t.Run("non-verbose hides info", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Info("hidden")
		logger.Warn("shown")
		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})

	t.Run("verbose shows debug", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		NewSecureLogger(&buf, true).Debug("detail")
		if !strings.Contains(buf.String(), "detail") {
			t.Errorf("expected debug output: %s", buf.String())
		}
	})

	t.Run("Level", func(t *testing.T) {
		t.Parallel()
		if Level(false, true) != slog.LevelInfo {
			t.Error("daemon should log at info")
		}
		if Level(true, true) != slog.LevelDebug {
			t.Error("verbose should win")
		}
		if Level(false, false) != slog.LevelWarn {
			t.Error("one-shot commands should warn")
		}
	})
}

func TestSecureHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true).With("password", "hunter2", "job", "refresh")
	logger.Info("test")

	output := buf.String()
	if strings.Contains(output, "hunter2") {
		t.Errorf("password leaked: %s", output)
	}
	if !strings.Contains(output, "job=refresh") {
		t.Errorf("expected job attr: %s", output)
	}
}

func TestSecureHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewSecureLogger(&buf, true)
	logger.Info("test", slog.Group("portal", slog.String("password", "hunter2"), slog.String("uid", "305")))

	output := buf.String()
	if strings.Contains(output, "hunter2") {
		t.Errorf("password leaked: %s", output)
	}
	if !strings.Contains(output, "portal.uid=305") {
		t.Errorf("expected grouped attr: %s", output)
	}
}

func TestNewSecureJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSecureJSONLogger(&buf, true).Info("test", "token", botToken)

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON output: %s", output)
	}
	if strings.Contains(output, botToken) {
		t.Errorf("token leaked: %s", output)
	}
}

func TestNewSecureHandler_NilHandler(t *testing.T) {
	t.Parallel()

	h := NewSecureHandler(nil)
	if h.handler == nil {
		t.Error("expected default handler")
	}
}
