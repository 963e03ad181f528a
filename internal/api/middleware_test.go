package api

import (
	"log/slog"
	"testing"
)

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		method string
		path   string
		status int
		want   slog.Level
	}{
		{"GET", "/api/bridge", 200, slog.LevelInfo},
		{"POST", "/api/bridge/enable", 202, slog.LevelInfo},
		{"GET", "/api/health", 200, slog.LevelDebug},
		{"GET", "/api/events", 200, slog.LevelDebug},
		{"GET", "/api/logs/stream", 200, slog.LevelDebug},
		{"OPTIONS", "/api/bridge", 204, slog.LevelDebug},
		{"GET", "/api/events", 401, slog.LevelWarn},
		{"POST", "/api/bridge/enable", 409, slog.LevelWarn},
		{"POST", "/api/bridge/enable", 500, slog.LevelError},
		{"GET", "/api/healthz", 200, slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := requestLevel(tt.method, tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%s %s %d) = %v, want %v", tt.method, tt.path, tt.status, got, tt.want)
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	h := DefaultCORSConfig().headers()
	got := map[string]string{}
	for _, kv := range h {
		got[kv[0]] = kv[1]
	}
	if got["Access-Control-Allow-Origin"] != "*" {
		t.Errorf("Unexpected origin %q", got["Access-Control-Allow-Origin"])
	}
	if got["Access-Control-Allow-Methods"] != "GET, POST, PUT, OPTIONS" {
		t.Errorf("Unexpected methods %q", got["Access-Control-Allow-Methods"])
	}
	if got["Access-Control-Max-Age"] != "86400" {
		t.Errorf("Unexpected max age %q", got["Access-Control-Max-Age"])
	}
}
