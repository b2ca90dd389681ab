package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	// AdminKey gates catalog mutation endpoints. The try-on flow itself is
	// unauthenticated.
	AdminKey string

	SwapProvider  string
	PiAPIKey      string
	PiAPIBaseURL  string
	VModelToken   string
	VModelBaseURL string
	VModelVersion string

	FreeImageKey     string
	FreeImageBaseURL string
	ImgBBKey         string
	ImgBBBaseURL     string

	MaxUploadBytes        int64
	MaxCatalogUploadBytes int64
	ProviderMaxDimension  int
	TransientUploadExpiry int

	PollInterval time.Duration
	MaxPolls     int
	JobRetention time.Duration

	CatalogCacheTTL time.Duration
	RecentsLimit    int

	WatermarkText    string
	WatermarkQuality int
	ResultStorePath  string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),

		AdminKey: os.Getenv("ADMIN_KEY"),

		SwapProvider:  getEnv("SWAP_PROVIDER", "piapi"),
		PiAPIKey:      os.Getenv("PIAPI_API_KEY"),
		PiAPIBaseURL:  getEnv("PIAPI_BASE_URL", "https://api.piapi.ai/api/v1"),
		VModelToken:   os.Getenv("VMODEL_API_TOKEN"),
		VModelBaseURL: getEnv("VMODEL_BASE_URL", "https://api.vmodel.ai/api/tasks/v1"),
		VModelVersion: os.Getenv("VMODEL_VERSION"),

		FreeImageKey:     os.Getenv("FREEIMAGE_API_KEY"),
		FreeImageBaseURL: getEnv("FREEIMAGE_BASE_URL", "https://freeimage.host/api/1"),
		ImgBBKey:         os.Getenv("IMGBB_API_KEY"),
		ImgBBBaseURL:     getEnv("IMGBB_BASE_URL", "https://api.imgbb.com/1"),

		MaxUploadBytes:        getEnvInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
		MaxCatalogUploadBytes: getEnvInt64("MAX_CATALOG_UPLOAD_BYTES", 32*1024*1024),
		ProviderMaxDimension:  getEnvInt("PROVIDER_MAX_DIMENSION", 2048),
		TransientUploadExpiry: getEnvInt("TRANSIENT_UPLOAD_EXPIRY_SECONDS", 600),

		PollInterval: time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		MaxPolls:     getEnvInt("MAX_POLLS", 150),
		JobRetention: time.Second * time.Duration(getEnvInt("JOB_RETENTION_SECONDS", 1800)),

		CatalogCacheTTL: time.Second * time.Duration(getEnvInt("CATALOG_CACHE_TTL_SECONDS", 300)),
		RecentsLimit:    getEnvInt("RECENTS_LIMIT", 12),

		WatermarkText:    getEnv("WATERMARK_TEXT", "Tokitos Wigs"),
		WatermarkQuality: getEnvInt("WATERMARK_QUALITY", 90),
		ResultStorePath:  getEnv("RESULT_STORE_PATH", "./results"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AdminKey == "" {
		return nil, fmt.Errorf("ADMIN_KEY is required")
	}

	if cfg.MaxPolls <= 0 {
		return nil, fmt.Errorf("MAX_POLLS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
