package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/imyousuf/codescribe/internal/model"
)

// Write serializes the config to TOML at path.
func Write(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	content := "# codescribe configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0o644)
}

// Default returns a fully defaulted config for interactive setup.
func Default() *Config {
	return &Config{
		Output:   OutputConfig{Dir: "docs"},
		Analysis: AnalysisConfig{Cache: true},
		LLM: LLMConfig{
			Provider:       "openai",
			MainModel:      "gpt-4o",
			APIKeyEnv:      DefaultAPIKeyEnv,
			TimeoutSeconds: 300,
		},
		Budgets: model.DefaultBudgets(),
	}
}
