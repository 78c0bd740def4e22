package llm

import (
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/petitor/internal/common"
)

func newTestFactory() *ProviderFactory {
	cfg := common.DefaultConfig()
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, nil, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"claude-haiku-4-5-20251001", ProviderClaude},
		{"claude/claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-sonnet-4-20250514", ProviderClaude},
		{"gemini-3-flash-preview", ProviderGemini},
		{"gemini/gemini-3-flash-preview", ProviderGemini},
		{"google/gemini-3-flash-preview", ProviderGemini},
		{"", ProviderClaude}, // default provider from config
		{"mystery-model", ProviderClaude},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := factory.DetectProvider(tt.model); got != tt.want {
				t.Errorf("DetectProvider(%q) = %s, want %s", tt.model, got, tt.want)
			}
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	factory := newTestFactory()

	tests := []struct {
		model string
		want  string
	}{
		{"claude/claude-sonnet-4-20250514", "claude-sonnet-4-20250514"},
		{"gemini/gemini-3-flash-preview", "gemini-3-flash-preview"},
		{"claude-haiku-4-5-20251001", "claude-haiku-4-5-20251001"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := factory.NormalizeModel(tt.model); got != tt.want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
