package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/amrita-ai/amrita/pkg/models"
)

func TestRegistry_GetBeforeSet(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if r.Ready() {
		t.Error("registry should not be ready before Set")
	}
}

func TestRegistry_SetThenGet(t *testing.T) {
	r := NewRegistry()
	cfg := models.DefaultConfig()
	cfg.LLM.MaxRetries = 7
	if err := r.Set(cfg); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := r.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LLM.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", got.LLM.MaxRetries)
	}

	// The returned snapshot is a copy; mutating it must not affect the registry.
	got.LLM.MaxRetries = 1
	again, _ := r.Get()
	if again.LLM.MaxRetries != 7 {
		t.Error("snapshot mutation leaked into registry")
	}
}

func TestRegistry_SetRejectsInvalid(t *testing.T) {
	r := NewRegistry()
	cfg := models.DefaultConfig()
	cfg.Function.ToolCallingMode = "bogus"
	if err := r.Set(cfg); err == nil {
		t.Error("expected validation error")
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	global := models.DefaultConfig()
	global.LLM.MaxTokens = 100
	if err := r.Set(global); err != nil {
		t.Fatalf("Set: %v", err)
	}

	override := models.DefaultConfig()
	override.LLM.MaxTokens = 5

	got, err := r.Resolve(override)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.LLM.MaxTokens != 5 {
		t.Errorf("override not honored: MaxTokens = %d", got.LLM.MaxTokens)
	}

	got, err = r.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve(nil): %v", err)
	}
	if got.LLM.MaxTokens != 100 {
		t.Errorf("global not returned: MaxTokens = %d", got.LLM.MaxTokens)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amrita.yaml")
	body := `
function:
  tool_calling_mode: rag
  agent_max_tool_calls: 5
llm:
  max_tokens: 256
  memory_abstract_proportion: 0.25
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Function.ToolCallingMode != models.ToolModeRAG {
		t.Errorf("tool_calling_mode = %q", cfg.Function.ToolCallingMode)
	}
	if cfg.Function.AgentMaxToolCalls != 5 || cfg.LLM.MaxTokens != 256 {
		t.Errorf("values not loaded: %+v", cfg)
	}
	// Untouched fields keep defaults.
	if cfg.LLM.LLMTimeoutSeconds != 120 {
		t.Errorf("default llm_timeout_s lost: %d", cfg.LLM.LLMTimeoutSeconds)
	}
}

func TestLoadFile_JSONAndErrors(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "amrita.json")
	if err := os.WriteFile(jsonPath, []byte(`{"llm":{"max_tokens":64}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile json: %v", err)
	}
	if cfg.LLM.MaxTokens != 64 {
		t.Errorf("json value not loaded: %d", cfg.LLM.MaxTokens)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	badExt := filepath.Join(dir, "conf.toml")
	if err := os.WriteFile(badExt, []byte("x = 1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(badExt); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
