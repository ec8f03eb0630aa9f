package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"trace": zerolog.TraceLevel,
		"DEBUG": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}

	for input, expected := range tests {
		got, err := ParseLevel(input)
		if err != nil || got != expected {
			t.Errorf("ParseLevel(%q) = %v, %v", input, got, err)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	l, err := Logger{Level: "warn", Format: "json"}.New(&buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Info().Msg("hidden")
	l.Warn().Str("id", "F1").Msg("visible")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	if gjson.Get(lines[0], "message").String() != "visible" || gjson.Get(lines[0], "id").String() != "F1" {
		t.Errorf("unexpected entry %s", lines[0])
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer

	l, err := Logger{Format: "text", NoColor: true}.New(&buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info().Int("features", 3).Msg("Processing features")

	out := buf.String()
	if !strings.Contains(out, "Processing features") || !strings.Contains(out, "features=3") {
		t.Errorf("unexpected console output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("colors not disabled: %q", out)
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotfarm.log")

	var buf bytes.Buffer
	l, err := Logger{Format: "json", File: path}.New(&buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Info().Msg("to both")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(buf.String(), "to both") {
		t.Errorf("entry missing: file %q, buffer %q", data, buf.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := (Logger{Level: "loud"}).New(&bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}
