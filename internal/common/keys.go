package common

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/petitor/internal/interfaces"
)

// keyToEnv maps KV store key names to their environment variable overrides.
// Environment variables have highest priority.
var keyToEnv = map[string][]string{
	"anthropic_api_key": {"ANTHROPIC_API_KEY", "PETITOR_CLAUDE_API_KEY"},
	"gemini_api_key":    {"GEMINI_API_KEY", "PETITOR_GEMINI_API_KEY"},
}

// ResolveAPIKey resolves an API key with precedence:
// environment variable -> KV store -> config file value.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	if envNames, ok := keyToEnv[name]; ok {
		for _, envName := range envNames {
			if v := os.Getenv(envName); v != "" {
				return v, nil
			}
		}
	}

	if kvStorage != nil {
		value, err := kvStorage.Get(ctx, name)
		if err == nil && value != "" {
			return value, nil
		}
		if err != nil && err != interfaces.ErrKeyNotFound {
			return "", fmt.Errorf("failed to read %s from storage: %w", name, err)
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("no API key configured for %s", name)
}
