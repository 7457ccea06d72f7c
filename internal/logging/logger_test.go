package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/Ushasricpu/paper/internal/config"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}, "1.2.3", "bus-heatmap")

	logger.Debug("hidden")
	logger.Info("hello", "bus_no", "bus1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines; want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	want := map[string]string{"msg": "hello", "app": "bus-heatmap", "version": "1.2.3", "env": "prod", "bus_no": "bus1"}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v; want %q", k, rec[k], v)
		}
	}
}

func TestNew_DevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}, "dev", "bus-heatmap")

	logger.Debug("tinted", "k", "v")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("dev output looks like JSON: %q", out)
	}
	for _, want := range []string{"tinted", "bus-heatmap", "logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
