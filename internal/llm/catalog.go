package llm

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Providers supported by the catalog and client.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderTogether  = "together"
)

// DefaultJudgeKey is the model used for judging when none is requested.
const DefaultJudgeKey = "claude-sonnet"

// catalogFile is the optional per-project catalog override, looked up
// relative to the working directory.
const catalogFile = "models.yaml"

// ModelConfig describes one invocable model.
type ModelConfig struct {
	Provider    string `yaml:"provider"`
	ModelID     string `yaml:"model_id"`
	DisplayName string `yaml:"display_name"`

	// EnvKey names the environment variable holding the credential for
	// this model; the model is skipped when it is unset.
	EnvKey string `yaml:"env_key"`

	// CostIn and CostOut are USD per million tokens.
	CostIn  float64 `yaml:"cost_in"`
	CostOut float64 `yaml:"cost_out"`

	MaxTokens       int      `yaml:"max_tokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	ReasoningEffort string   `yaml:"reasoning_effort,omitempty"`
}

// EstimateCost returns the dollar cost of a completed call.
func (m ModelConfig) EstimateCost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*m.CostIn + float64(outputTokens)*m.CostOut) / 1e6
}

// Request builds the invocation request for this model.
func (m ModelConfig) Request(system, user string) Request {
	return Request{
		Provider:        m.Provider,
		ModelID:         m.ModelID,
		System:          system,
		User:            user,
		MaxTokens:       m.MaxTokens,
		Temperature:     m.Temperature,
		ReasoningEffort: m.ReasoningEffort,
	}
}

// Catalog maps model keys to configurations.
type Catalog map[string]ModelConfig

// DefaultCatalog returns the built-in model set.
func DefaultCatalog() Catalog {
	return Catalog{
		"claude-sonnet": {
			Provider:    ProviderAnthropic,
			ModelID:     "claude-sonnet-4-5",
			DisplayName: "Claude Sonnet 4.5",
			EnvKey:      "ANTHROPIC_API_KEY",
			CostIn:      3.00,
			CostOut:     15.00,
		},
		"claude-haiku": {
			Provider:    ProviderAnthropic,
			ModelID:     "claude-haiku-4-5",
			DisplayName: "Claude Haiku 4.5",
			EnvKey:      "ANTHROPIC_API_KEY",
			CostIn:      1.00,
			CostOut:     5.00,
		},
		"gpt-5": {
			Provider:        ProviderOpenAI,
			ModelID:         "gpt-5",
			DisplayName:     "GPT-5",
			EnvKey:          "OPENAI_API_KEY",
			CostIn:          1.25,
			CostOut:         10.00,
			ReasoningEffort: "medium",
		},
		"gpt-5-mini": {
			Provider:        ProviderOpenAI,
			ModelID:         "gpt-5-mini",
			DisplayName:     "GPT-5 Mini",
			EnvKey:          "OPENAI_API_KEY",
			CostIn:          0.25,
			CostOut:         2.00,
			ReasoningEffort: "low",
		},
		"gemini-pro": {
			Provider:    ProviderGoogle,
			ModelID:     "gemini-2.5-pro",
			DisplayName: "Gemini 2.5 Pro",
			EnvKey:      "GOOGLE_API_KEY",
			CostIn:      1.25,
			CostOut:     10.00,
		},
		"gemini-flash": {
			Provider:    ProviderGoogle,
			ModelID:     "gemini-2.5-flash",
			DisplayName: "Gemini 2.5 Flash",
			EnvKey:      "GOOGLE_API_KEY",
			CostIn:      0.30,
			CostOut:     2.50,
		},
		"deepseek-v3": {
			Provider:    ProviderTogether,
			ModelID:     "deepseek-ai/DeepSeek-V3.1",
			DisplayName: "DeepSeek V3.1",
			EnvKey:      "TOGETHER_API_KEY",
			CostIn:      0.60,
			CostOut:     1.70,
		},
		"llama-maverick": {
			Provider:    ProviderTogether,
			ModelID:     "meta-llama/Llama-4-Maverick-17B-128E-Instruct-FP8",
			DisplayName: "Llama 4 Maverick",
			EnvKey:      "TOGETHER_API_KEY",
			CostIn:      0.27,
			CostOut:     0.85,
		},
	}
}

// LoadCatalog returns the default catalog merged with overrides from
// models.yaml under dir. A missing file is not an error; entries in the
// file add to or replace built-in ones by key.
func LoadCatalog(dir string) (Catalog, error) {
	catalog := DefaultCatalog()

	data, err := os.ReadFile(filepath.Join(dir, catalogFile))
	if errors.Is(err, fs.ErrNotExist) {
		return catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", catalogFile, err)
	}

	var overrides map[string]ModelConfig
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", catalogFile, err)
	}

	maps.Copy(catalog, overrides)
	return catalog, nil
}

// Available filters the catalog to models whose credential env var is set.
func (c Catalog) Available() Catalog {
	out := make(Catalog, len(c))
	for key, cfg := range c {
		if os.Getenv(cfg.EnvKey) != "" {
			out[key] = cfg
		}
	}
	return out
}

// Keys returns the catalog keys sorted.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// DisplayName resolves a model key to its display name, falling back to
// the key itself for unknown or external keys.
func (c Catalog) DisplayName(key string) string {
	if cfg, ok := c[key]; ok && cfg.DisplayName != "" {
		return cfg.DisplayName
	}
	return key
}

// SelfEnhancementRisk reports a warning when the judge and the evaluated
// model come from the same provider. Same-family judges tend to score their
// own outputs higher (Wataoka et al., 2024), so the warning is surfaced
// instead of blocking the run. Returns "" when there is no risk or either
// key is unknown.
func (c Catalog) SelfEnhancementRisk(judgeKey, evaluatedKey string) string {
	judge, ok := c[judgeKey]
	if !ok {
		return ""
	}
	evaluated, ok := c[evaluatedKey]
	if !ok {
		return ""
	}
	if judge.Provider == "" || judge.Provider != evaluated.Provider {
		return ""
	}
	return fmt.Sprintf("self-enhancement risk: %s judging %s (same family: %s), scores may be inflated",
		judge.DisplayName, evaluated.DisplayName, judge.Provider)
}
