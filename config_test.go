package main

import (
	"os"
	"path/filepath"
	"testing"
)

func setMinimalValidConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("AUDIT_ENGINE_URL", "http://localhost:9222")
	t.Setenv("LLM_PROVIDER", "none")
}

func TestLoadConfigDefaults(t *testing.T) {
	setMinimalValidConfigEnv(t)

	cfg := LoadConfig()

	if cfg.AuditTimeoutSeconds != 180 {
		t.Fatalf("unexpected audit timeout default: %d", cfg.AuditTimeoutSeconds)
	}
	if cfg.Concurrency != 1 {
		t.Fatalf("unexpected concurrency default: %d", cfg.Concurrency)
	}
	if cfg.IdentifierColumn != "Domain" {
		t.Fatalf("unexpected identifier column default: %q", cfg.IdentifierColumn)
	}
	if cfg.OutputDir != "./results" {
		t.Fatalf("unexpected output dir default: %q", cfg.OutputDir)
	}
	if cfg.DBPath != "./a11yscan.db" {
		t.Fatalf("unexpected db path default: %q", cfg.DBPath)
	}
	if len(cfg.Categories) != 10 {
		t.Fatalf("expected 10 default categories, got %d", len(cfg.Categories))
	}
	if cfg.PromptTemplate == "" {
		t.Fatalf("expected default prompt template")
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
audit_engine_url: "http://engine:9222"
audit_timeout_seconds: 60
llm_provider: "anthropic"
anthropic_api_key: "yaml-key"
input_path: "/tmp/yaml-sites.csv"
output_dir: "/tmp/yaml-results"
concurrency: 3
categories:
  - "Retail"
  - "Media"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("AUDIT_TIMEOUT_SECONDS", "90")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := LoadConfig()

	if cfg.AuditEngineURL != "http://engine:9222" {
		t.Fatalf("unexpected engine url: %q", cfg.AuditEngineURL)
	}
	if cfg.AuditTimeoutSeconds != 90 {
		t.Fatalf("env must override yaml timeout, got %d", cfg.AuditTimeoutSeconds)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("env must override yaml provider, got %q", cfg.LLMProvider)
	}
	if cfg.Concurrency != 3 {
		t.Fatalf("unexpected concurrency: %d", cfg.Concurrency)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[0] != "Retail" {
		t.Fatalf("unexpected categories: %v", cfg.Categories)
	}
}

func TestLoadConfigCategoriesFromEnv(t *testing.T) {
	setMinimalValidConfigEnv(t)
	t.Setenv("CATEGORIES", " Retail , Media ,")

	cfg := LoadConfig()

	if len(cfg.Categories) != 2 || cfg.Categories[0] != "Retail" || cfg.Categories[1] != "Media" {
		t.Fatalf("unexpected categories: %v", cfg.Categories)
	}
}

func TestIsKnownCategory(t *testing.T) {
	cfg := Config{Categories: []string{"E-commerce", "Blog"}}

	if got, ok := cfg.IsKnownCategory("  e-COMMERCE "); !ok || got != "E-commerce" {
		t.Fatalf("expected canonical E-commerce, got %q ok=%v", got, ok)
	}
	if _, ok := cfg.IsKnownCategory("Sports"); ok {
		t.Fatalf("Sports must not match the set")
	}
	if _, ok := cfg.IsKnownCategory(""); ok {
		t.Fatalf("empty label must not match the set")
	}
}
