package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferLogger returns a Logger writing JSON entries to the returned buffer.
func newBufferLogger(t *testing.T, level zapcore.Level) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		zapcore.AddSync(buf),
		level,
	)
	return NewLoggerWithCore(core, true), buf
}

func TestLogger_StructuredOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.DebugLevel)

	logger.Info("image generated",
		zap.String("model", "stable-diffusion"),
		zap.Int("steps", 50),
	)

	out := buf.String()
	for _, want := range []string{`"message":"image generated"`, `"model":"stable-diffusion"`, `"steps":50`, `"level":"info"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.InfoLevel)

	logger.Debug("should be dropped")
	logger.Info("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("debug entry leaked past info level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("info entry missing")
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.DebugLevel)

	logger.Info("configured backend",
		zap.String("OPENAI_API_KEY", "sk-abc123def456ghi789jkl012"),
		zap.String("url", "http://127.0.0.1:7861"),
	)

	out := buf.String()
	if strings.Contains(out, "sk-abc123") {
		t.Error("API key leaked into log output")
	}
	if !strings.Contains(out, RedactedPlaceholder) {
		t.Error("redaction placeholder missing")
	}
	if !strings.Contains(out, "http://127.0.0.1:7861") {
		t.Error("non-sensitive field was dropped")
	}
}

func TestLogger_RedactsSugaredPairs(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.DebugLevel)

	logger.Infow("login attempt", "WEB_PASSWORD", "hunter2secret", "user", "demo")

	out := buf.String()
	if strings.Contains(out, "hunter2secret") {
		t.Error("password leaked into log output")
	}
	if !strings.Contains(out, `"user":"demo"`) {
		t.Error("non-sensitive pair was dropped")
	}
}

func TestLogger_RedactsValuesInStrings(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.DebugLevel)

	logger.Info("request", zap.String("header", "Bearer abcdefghij0123456789xyzp"))

	if strings.Contains(buf.String(), "abcdefghij0123456789xyzp") {
		t.Error("bearer token leaked into log output")
	}
}

func TestLogger_NamedAndWith(t *testing.T) {
	logger, buf := newBufferLogger(t, zapcore.DebugLevel)

	child := logger.Named("webapi").With(zap.String("generation_id", "gen-1"))
	child.Info("handled")

	out := buf.String()
	if !strings.Contains(out, `"source":"webapi"`) {
		t.Errorf("named logger missing source field: %s", out)
	}
	if !strings.Contains(out, `"generation_id":"gen-1"`) {
		t.Errorf("With field missing: %s", out)
	}
}

func TestLogger_NilSyncSafe(t *testing.T) {
	var logger *Logger
	if err := logger.Sync(); err != nil {
		t.Errorf("nil logger Sync returned error: %v", err)
	}
}

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"Error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"  info  ", zapcore.InfoLevel},
		{"verbose", zapcore.WarnLevel}, // falls back to the supplied default
		{"", zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevelString(tt.input, zapcore.WarnLevel); got != tt.expected {
				t.Errorf("ParseLogLevelString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
