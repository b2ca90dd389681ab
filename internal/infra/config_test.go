package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ADMIN_KEY", "test-admin")
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	t.Setenv("MAX_POLLS", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval mismatch: got %s", cfg.PollInterval)
	}
	if cfg.MaxPolls != 150 {
		t.Fatalf("MaxPolls mismatch: got %d", cfg.MaxPolls)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxCatalogUploadBytes != 32*1024*1024 {
		t.Fatalf("MaxCatalogUploadBytes mismatch: got %d", cfg.MaxCatalogUploadBytes)
	}
	if cfg.ProviderMaxDimension != 2048 {
		t.Fatalf("ProviderMaxDimension mismatch: got %d", cfg.ProviderMaxDimension)
	}
	if cfg.SwapProvider != "piapi" {
		t.Fatalf("SwapProvider mismatch: got %q", cfg.SwapProvider)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_KEY", "test-admin")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}
}

func TestLoadConfigRequiresAdminKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ADMIN_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when ADMIN_KEY missing")
	}
}

func TestLoadConfigParsesAllowedOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ADMIN_KEY", "test-admin")
	t.Setenv("ALLOWED_ORIGINS", "https://try-on.example.com, http://localhost:3000 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"https://try-on.example.com", "http://localhost:3000"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
	for i, origin := range want {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
}
