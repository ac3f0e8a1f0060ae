package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("COMFYUI_SERVER_ADDRESS", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	t.Setenv("POLL_MAX_ATTEMPTS", "")
	t.Setenv("PROMPT_PROVIDER", "")
	t.Setenv("CATALOG_SOURCE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.BackendAddress != DefaultBackendAddress {
		t.Fatalf("BackendAddress = %q, want %q", cfg.BackendAddress, DefaultBackendAddress)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %s, want 2s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 60 || cfg.PollGraceAttempts != 5 {
		t.Fatalf("poll budget = %d/%d, want 60/5", cfg.PollMaxAttempts, cfg.PollGraceAttempts)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadConfigNormalizesBackendAddress(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		invalid string
	}{
		{raw: "http://10.0.0.5:8188/", want: "http://10.0.0.5:8188"},
		{raw: "https://gpu.example.com", want: "https://gpu.example.com"},
		{raw: "10.0.0.5:8188", want: DefaultBackendAddress, invalid: "10.0.0.5:8188"},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			t.Setenv("COMFYUI_SERVER_ADDRESS", tc.raw)
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig returned error: %v", err)
			}
			if cfg.BackendAddress != tc.want {
				t.Fatalf("BackendAddress = %q, want %q", cfg.BackendAddress, tc.want)
			}
			if cfg.BackendAddressInvalid != tc.invalid {
				t.Fatalf("BackendAddressInvalid = %q, want %q", cfg.BackendAddressInvalid, tc.invalid)
			}
		})
	}
}

func TestLoadConfigRequiresProviderCredentials(t *testing.T) {
	t.Setenv("PROMPT_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when openai key missing")
	}

	t.Setenv("PROMPT_PROVIDER", "static")
	t.Setenv("CATALOG_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when database url missing for postgres catalog")
	}
}

func TestLoadConfigRejectsBadPollBudget(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero attempts")
	}
}

func TestLoadConfigSplitsOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("AllowedOrigins = %#v", cfg.AllowedOrigins)
	}
}
