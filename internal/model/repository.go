package model

import (
	"time"

	"github.com/google/uuid"
)

// Repository identifies the code base under analysis for one run.
type Repository struct {
	URL        string `json:"url,omitempty"`
	Name       string `json:"name"`
	ClonePath  string `json:"clone_path"`
	AnalysisID string `json:"analysis_id"`
}

// NewRepository builds a Repository for a local checkout.
func NewRepository(name, path string) *Repository {
	return &Repository{
		Name:       name,
		ClonePath:  path,
		AnalysisID: uuid.NewString(),
	}
}

// TokenBudgets holds the process-wide thresholds that govern clustering
// splits, sub-agent recursion, and model output size.
type TokenBudgets struct {
	MaxTokensPerModule     int `json:"max_tokens_per_module" mapstructure:"max_tokens_per_module" toml:"max_tokens_per_module"`
	MaxTokensPerLeafModule int `json:"max_tokens_per_leaf_module" mapstructure:"max_tokens_per_leaf_module" toml:"max_tokens_per_leaf_module"`
	MaxOutputTokens        int `json:"max_output_tokens" mapstructure:"max_output_tokens" toml:"max_output_tokens"`
	MaxRecursionDepth      int `json:"max_recursion_depth" mapstructure:"max_recursion_depth" toml:"max_recursion_depth"`
}

// DefaultBudgets mirrors the limits the documentation pipeline was tuned
// with. MaxRecursionDepth counts sub-agent nesting levels below the root.
func DefaultBudgets() TokenBudgets {
	return TokenBudgets{
		MaxTokensPerModule:     36000,
		MaxTokensPerLeafModule: 16000,
		MaxOutputTokens:        8192,
		MaxRecursionDepth:      2,
	}
}

// GenerationInfo describes how a documentation run was produced.
type GenerationInfo struct {
	Timestamp time.Time `json:"timestamp"`
	MainModel string    `json:"main_model"`
	RepoPath  string    `json:"repo_path"`
	CommitID  string    `json:"commit_id,omitempty"`
}

// Statistics summarizes a completed run.
type Statistics struct {
	TotalComponents int `json:"total_components"`
	LeafComponents  int `json:"leaf_components"`
	FilesAnalyzed   int `json:"files_analyzed"`
	MaxDepth        int `json:"max_depth"`
}

// Metadata is the metadata.json artifact written after a successful run.
type Metadata struct {
	GenerationInfo GenerationInfo `json:"generation_info"`
	Statistics     Statistics     `json:"statistics"`
}
