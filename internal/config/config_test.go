package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"GIN_MODE", "CONVERSION_LIMIT", "MAX_UPLOAD_MB", "RENDER_DPI", "CORS_ORIGIN", "LIMITER_TIMEZONE", "RESULT_TTL_HOURS", "WEBHOOK_SECRET"} {
		t.Setenv(k, "")
	}
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("CORS_ORIGIN", "http://localhost:5173, https://smartconverter.app")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConversionLimit != 2 {
		t.Errorf("ConversionLimit = %d, want 2", cfg.ConversionLimit)
	}
	if cfg.MaxUploadBytes() != 50<<20 {
		t.Errorf("MaxUploadBytes() = %d, want %d", cfg.MaxUploadBytes(), 50<<20)
	}
	if cfg.ResultTTL != 24*time.Hour {
		t.Errorf("ResultTTL = %v, want 24h", cfg.ResultTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://smartconverter.app" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.LimiterLocation != time.Local {
		t.Errorf("LimiterLocation = %v, want Local", cfg.LimiterLocation)
	}
	if cfg.WebhookSecret != "" {
		t.Errorf("WebhookSecret = %q, want empty", cfg.WebhookSecret)
	}
}

func TestLoad_WebhookSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("WEBHOOK_SECRET", "whsec")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WebhookSecret != "whsec" {
		t.Errorf("WebhookSecret = %q, want whsec", cfg.WebhookSecret)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "release with default secret",
			env:     map[string]string{"GIN_MODE": "release", "ADMIN_API_KEY": "admin"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "release without admin key",
			env:     map[string]string{"GIN_MODE": "release", "JWT_SECRET": "s3cret", "ADMIN_API_KEY": ""},
			wantErr: "ADMIN_API_KEY",
		},
		{
			name:    "unknown time zone",
			env:     map[string]string{"LIMITER_TIMEZONE": "Mars/Olympus"},
			wantErr: "LIMITER_TIMEZONE",
		},
		{
			name:    "render dpi too high",
			env:     map[string]string{"RENDER_DPI": "1200"},
			wantErr: "RENDER_DPI",
		},
		{
			name:    "zero upload size",
			env:     map[string]string{"MAX_UPLOAD_MB": "0"},
			wantErr: "MAX_UPLOAD_MB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GIN_MODE", "debug")
			t.Setenv("JWT_SECRET", devJWTSecret)
			t.Setenv("LIMITER_TIMEZONE", "")
			t.Setenv("RENDER_DPI", "")
			t.Setenv("MAX_UPLOAD_MB", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"", 7},
		{"12", 12},
		{" 3 ", 3},
		{"abc", 7},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SC_TEST_INT", tt.value)
			if got := getEnvInt("SC_TEST_INT", 7); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
