package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CLIENT_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("CHECKOUT_MIN_AMOUNT", "")
	t.Setenv("CHECKOUT_MAX_AMOUNT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClientURL != "http://localhost:5173" {
		t.Fatalf("ClientURL mismatch: got %q", cfg.ClientURL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != cfg.ClientURL {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.CheckoutMinAmount != 50 || cfg.CheckoutMaxAmount != 10_000_000 {
		t.Fatalf("checkout bounds mismatch: %d..%d", cfg.CheckoutMinAmount, cfg.CheckoutMaxAmount)
	}
	if cfg.ProviderTimeout != 10*time.Second {
		t.Fatalf("ProviderTimeout mismatch: %s", cfg.ProviderTimeout)
	}
	if cfg.InMemoryStore() {
		t.Fatalf("postgres url reported as in-memory store")
	}
}

func TestLoadConfigTrimsClientURLAndSplitsOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CLIENT_URL", "https://eco.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://eco.example.com, https://admin.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ClientURL != "https://eco.example.com" {
		t.Fatalf("ClientURL mismatch: got %q", cfg.ClientURL)
	}
	expected := []string{"https://eco.example.com", "https://admin.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if !cfg.InMemoryStore() {
		t.Fatalf("memory:// url not reported as in-memory store")
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without JWT_SECRET")
	}
}

func TestLoadConfigRejectsInvertedBounds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CHECKOUT_MIN_AMOUNT", "500")
	t.Setenv("CHECKOUT_MAX_AMOUNT", "100")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error for inverted bounds")
	}
}
