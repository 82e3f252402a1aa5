package llm

import (
	"strings"
	"testing"

	"github.com/scholiast/scholia/internal/model"
)

func TestNewProvider_DisabledWhenUnset(t *testing.T) {
	provider, err := NewProvider(model.LLMConfig{})
	if err != nil {
		t.Fatalf("Expected no error for empty provider, got %v", err)
	}
	if provider != nil {
		t.Errorf("Expected nil provider when unset, got %v", provider)
	}
}

func TestNewProvider_SelectsByName(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"Claude", "anthropic"},
		{"ollama", "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := model.LLMConfig{Provider: tt.provider, APIKey: "test-key"}
			provider, err := NewProvider(cfg)
			if err != nil {
				t.Fatalf("NewProvider(%s) failed: %v", tt.provider, err)
			}
			if provider.Name() != tt.want {
				t.Errorf("Expected provider name %s, got %s", tt.want, provider.Name())
			}
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(model.LLMConfig{Provider: "bard"})
	if err == nil {
		t.Fatal("Expected error for unknown provider, got nil")
	}
	if !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewProvider_OpenAIRequiresKey(t *testing.T) {
	_, err := NewProvider(model.LLMConfig{Provider: "openai"})
	if err == nil {
		t.Fatal("Expected error for missing API key, got nil")
	}
}
