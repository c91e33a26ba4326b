package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestKeySet_Validate(t *testing.T) {
	keys := NewKeySet([]string{"kb_live_alpha", "  ", "kb_live_beta"})
	if keys.Len() != 2 {
		t.Fatalf("Expected 2 keys, got %d", keys.Len())
	}

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"有效密钥", "kb_live_alpha", nil},
		{"另一个有效密钥", "kb_live_beta", nil},
		{"未知密钥", "kb_live_gamma", ErrInvalidAPIKey},
		{"空密钥", "", ErrMissingAPIKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := keys.Validate(tt.key)
			if err != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && client != Fingerprint(tt.key) {
				t.Errorf("Expected fingerprint %s, got %s", Fingerprint(tt.key), client)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("kb_live_alpha")
	if len(fp) != 12 {
		t.Errorf("Expected 12-char fingerprint, got %q", fp)
	}
	if fp == Fingerprint("kb_live_beta") {
		t.Error("Expected distinct fingerprints for distinct keys")
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	clock := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("Expected first two requests to pass")
	}
	if rl.Allow("a") {
		t.Error("Expected third request in window to be rejected")
	}
	if rl.Remaining("a") != 0 {
		t.Errorf("Expected 0 remaining, got %d", rl.Remaining("a"))
	}
	if !rl.Allow("b") {
		t.Error("Expected other client to be unaffected")
	}

	clock = clock.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("Expected request after window to pass")
	}
	if rl.Remaining("a") != 1 {
		t.Errorf("Expected 1 remaining, got %d", rl.Remaining("a"))
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"Bearer头", "Authorization", "Bearer kb_live_alpha", "kb_live_alpha"},
		{"X-API-Key头", "X-API-Key", "kb_live_beta", "kb_live_beta"},
		{"其他认证方式", "Authorization", "Basic abc", ""},
		{"无密钥", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/timetable/solve", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			if got := ExtractAPIKey(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
