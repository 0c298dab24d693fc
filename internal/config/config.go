// Package config loads, validates, and writes the codescribe run
// configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/imyousuf/codescribe/internal/model"
)

const (
	// DefaultConfigName is the config file name without extension.
	DefaultConfigName = ".codescribe"
	// DefaultConfigType is the config file format.
	DefaultConfigType = "toml"
	// DefaultAPIKeyEnv names the environment variable consulted for
	// the model API key when the config does not override it.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

// docTypes are the accepted documentation emphases.
var docTypes = map[string]bool{
	"":             true,
	"api":          true,
	"architecture": true,
	"user-guide":   true,
	"developer":    true,
}

// Config holds everything a run needs.
type Config struct {
	Repository RepositoryConfig   `mapstructure:"repository" toml:"repository"`
	Output     OutputConfig       `mapstructure:"output" toml:"output"`
	Analysis   AnalysisConfig     `mapstructure:"analysis" toml:"analysis"`
	Docs       DocsConfig         `mapstructure:"docs" toml:"docs"`
	LLM        LLMConfig          `mapstructure:"llm" toml:"llm"`
	Budgets    model.TokenBudgets `mapstructure:"budgets" toml:"budgets"`
}

// RepositoryConfig identifies the code base to document.
type RepositoryConfig struct {
	// Root is the repository directory.
	Root string `mapstructure:"root" toml:"root"`
	// Name labels the repository in the overview. Defaults to the base
	// name of Root.
	Name string `mapstructure:"name" toml:"name,omitempty"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	// Dir receives the documentation, graph artifact, and metadata.
	Dir string `mapstructure:"dir" toml:"dir"`
}

// AnalysisConfig tunes component extraction.
type AnalysisConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns" toml:"include_patterns,omitempty"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" toml:"exclude_patterns,omitempty"`
	// Workers bounds the parse pool; zero sizes it from the CPU count.
	Workers int `mapstructure:"workers" toml:"workers,omitempty"`
	// Cache enables the per-file extraction cache under the output dir.
	Cache bool `mapstructure:"cache" toml:"cache"`
}

// DocsConfig tunes the documentation agents.
type DocsConfig struct {
	// Type selects the emphasis: api, architecture, user-guide, or
	// developer.
	Type string `mapstructure:"type" toml:"type,omitempty"`
	// FocusModules get extra depth in prompts.
	FocusModules []string `mapstructure:"focus_modules" toml:"focus_modules,omitempty"`
	// CustomInstructions are appended to agent system prompts.
	CustomInstructions string `mapstructure:"custom_instructions" toml:"custom_instructions,omitempty"`
	// Concurrency bounds parallel sibling modules; zero or one keeps
	// the walk sequential.
	Concurrency int `mapstructure:"concurrency" toml:"concurrency,omitempty"`
}

// LLMConfig selects the models and their transport.
type LLMConfig struct {
	// Provider is a registered provider name (openai, anthropic).
	Provider string `mapstructure:"provider" toml:"provider"`
	// MainModel drives the documentation agents.
	MainModel string `mapstructure:"main_model" toml:"main_model"`
	// ClusterModel drives the clustering step; defaults to MainModel.
	ClusterModel string `mapstructure:"cluster_model" toml:"cluster_model,omitempty"`
	// FallbackModels are tried in order when the main model fails with
	// a retryable error.
	FallbackModels []string `mapstructure:"fallback_models" toml:"fallback_models,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url" toml:"base_url,omitempty"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `mapstructure:"api_key_env" toml:"api_key_env,omitempty"`
	// TimeoutSeconds bounds one model call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds,omitempty"`
}

// APIKey resolves the model API key from the configured environment
// variable.
func (l LLMConfig) APIKey() string {
	env := l.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return os.Getenv(env)
}

// RepoName returns the configured repository label, defaulting to the
// base name of the repository root.
func (c *Config) RepoName() string {
	if c.Repository.Name != "" {
		return c.Repository.Name
	}
	return filepath.Base(filepath.Clean(c.Repository.Root))
}

// Load reads configuration from the given file (or .codescribe.toml in
// the working directory when empty), environment variables with the
// CODESCRIBE prefix, and defaults, in ascending precedence.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CODESCRIBE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration. requireLLM additionally demands a
// usable model selection (the analyze command runs without one).
func (c *Config) Validate(requireLLM bool) error {
	if c.Repository.Root == "" {
		return fmt.Errorf("repository.root is required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if !docTypes[c.Docs.Type] {
		return fmt.Errorf("docs.type must be one of api, architecture, user-guide, developer; got %q", c.Docs.Type)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative")
	}
	if c.Budgets.MaxTokensPerModule <= 0 || c.Budgets.MaxTokensPerLeafModule <= 0 ||
		c.Budgets.MaxOutputTokens <= 0 || c.Budgets.MaxRecursionDepth <= 0 {
		return fmt.Errorf("budgets must be positive")
	}
	if requireLLM {
		if c.LLM.Provider == "" {
			return fmt.Errorf("llm.provider is required")
		}
		if c.LLM.MainModel == "" {
			return fmt.Errorf("llm.main_model is required")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", "docs")
	v.SetDefault("analysis.cache", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.main_model", "gpt-4o")
	v.SetDefault("llm.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("llm.timeout_seconds", 300)

	budgets := model.DefaultBudgets()
	v.SetDefault("budgets.max_tokens_per_module", budgets.MaxTokensPerModule)
	v.SetDefault("budgets.max_tokens_per_leaf_module", budgets.MaxTokensPerLeafModule)
	v.SetDefault("budgets.max_output_tokens", budgets.MaxOutputTokens)
	v.SetDefault("budgets.max_recursion_depth", budgets.MaxRecursionDepth)
}
