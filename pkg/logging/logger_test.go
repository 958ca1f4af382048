package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("default level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("default output should be JSON, not pretty")
	}
}

func TestSetup_LevelsReachOutput(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}

	for _, level := range levels {
		t.Run(string(level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: level, Output: buf})

			msg := "message at " + string(level)
			switch level {
			case LevelDebug:
				logger.Debug().Msg(msg)
			case LevelInfo:
				logger.Info().Msg(msg)
			case LevelWarn:
				logger.Warn().Msg(msg)
			case LevelError:
				logger.Error().Msg(msg)
			}

			if !strings.Contains(buf.String(), msg) {
				t.Errorf("output %q does not contain %q", buf.String(), msg)
			}
		})
	}
}

func TestSetup_NilOutputDefaultsToStderr(t *testing.T) {
	// Must not panic; stderr content is not asserted.
	Setup(Config{Level: LevelInfo})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLogger_TagsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("chunkedgraph")
	logger.Info().Uint64("root_id", 864691135).Msg("Root resolved")

	out := buf.String()
	if !strings.Contains(out, `"component":"chunkedgraph"`) {
		t.Errorf("output %q is missing the component field", out)
	}
	if !strings.Contains(out, "864691135") {
		t.Errorf("output %q is missing the root_id field", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("dispatch")
	logger.Debug().Msg("suppressed debug")
	logger.Info().Msg("suppressed info")
	logger.Warn().Msg("visible warn")
	logger.Error().Msg("visible error")

	out := buf.String()
	for _, suppressed := range []string{"suppressed debug", "suppressed info"} {
		if strings.Contains(out, suppressed) {
			t.Errorf("output contains %q, which is below the warn level", suppressed)
		}
	}
	for _, visible := range []string{"visible warn", "visible error"} {
		if !strings.Contains(out, visible) {
			t.Errorf("output is missing %q", visible)
		}
	}
}
