package config

import "testing"

func TestHasLLMTrueWhenBothSet(t *testing.T) {
	c := Config{LLMEndpoint: "https://llm.example.com", LLMAPIKey: "llm-key"}
	if !c.HasLLM() {
		t.Fatal("expected HasLLM to be true when endpoint and key are set")
	}
}

func TestHasLLMFalseWhenUnset(t *testing.T) {
	var c Config
	if c.HasLLM() {
		t.Fatal("expected HasLLM false with no LLM config")
	}
}

func TestHasLLMFalseWhenOnlyOneSet(t *testing.T) {
	c := Config{LLMEndpoint: "https://llm.example.com"}
	if c.HasLLM() {
		t.Fatal("expected HasLLM false when only the endpoint is set")
	}
}

func TestDefaultDataDirUsesEnvOverride(t *testing.T) {
	t.Setenv("JUNCTION_DATA_DIR", "/tmp/custom-junction-dir")
	if got := DefaultDataDir(); got != "/tmp/custom-junction-dir" {
		t.Fatalf("DefaultDataDir() = %q", got)
	}
}
