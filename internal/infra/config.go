package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultBackendAddress is used when COMFYUI_SERVER_ADDRESS is unset or malformed.
const DefaultBackendAddress = "http://127.0.0.1:8188"

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	BackendAddress        string
	BackendAddressInvalid string
	BackendTimeout        time.Duration
	WorkflowTemplatePath  string

	PollInterval      time.Duration
	PollMaxAttempts   int
	PollGraceAttempts int

	StaticAssetDir string
	PhotoStoreDir  string

	PromptProvider string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string

	CatalogSource   string
	CatalogCacheTTL time.Duration
	DatabaseURL     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxUploadBytes   int64
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		BackendTimeout:       time.Second * time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 60)),
		WorkflowTemplatePath: os.Getenv("WORKFLOW_TEMPLATE_PATH"),
		PollInterval:         time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		PollMaxAttempts:      getEnvInt("POLL_MAX_ATTEMPTS", 60),
		PollGraceAttempts:    getEnvInt("POLL_GRACE_ATTEMPTS", 5),
		StaticAssetDir:       getEnv("STATIC_ASSET_DIR", "./public"),
		PhotoStoreDir:        getEnv("PHOTO_STORE_DIR", "./storage/photos"),
		PromptProvider:       strings.ToLower(getEnv("PROMPT_PROVIDER", "static")),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		CatalogSource:        strings.ToLower(getEnv("CATALOG_SOURCE", "static")),
		CatalogCacheTTL:      time.Second * time.Duration(getEnvInt("CATALOG_CACHE_TTL_SECONDS", 300)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		AllowedOrigins:       splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	cfg.BackendAddress, cfg.BackendAddressInvalid = normalizeBackendAddress(os.Getenv("COMFYUI_SERVER_ADDRESS"))

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.PollMaxAttempts < 1 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.PollGraceAttempts < 0 {
		cfg.PollGraceAttempts = 0
	}
	switch cfg.PromptProvider {
	case "static":
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when PROMPT_PROVIDER=openai")
		}
	default:
		return nil, fmt.Errorf("unsupported PROMPT_PROVIDER %q", cfg.PromptProvider)
	}
	switch cfg.CatalogSource {
	case "static", "directory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when CATALOG_SOURCE=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported CATALOG_SOURCE %q", cfg.CatalogSource)
	}

	return cfg, nil
}

// normalizeBackendAddress returns the usable address and, when the raw value
// had to be replaced, the rejected input so the caller can warn about it.
func normalizeBackendAddress(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBackendAddress, ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return DefaultBackendAddress, raw
	}
	return strings.TrimRight(raw, "/"), ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
