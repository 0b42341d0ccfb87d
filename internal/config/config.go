// Package config holds the model-selection profiles and the persisted user
// configuration (API key, retry budget). The pipeline core only reads the
// resolved profile and retry budget at call time; persistence is an
// interface concern of the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Role names one pipeline stage's model slot in a profile.
type Role string

const (
	RoleDiagnosis Role = "diagnosis"
	RoleSynthesis Role = "synthesis"
)

// ModelPair is a primary model identifier plus an optional fallback tried
// once on quota-class failures. An empty Fallback disables the hop.
type ModelPair struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback,omitempty"`
}

// Profile is a named bundle of model pairs, one per role.
type Profile struct {
	Name      string    `json:"name"`
	Diagnosis ModelPair `json:"diagnosis"`
	Synthesis ModelPair `json:"synthesis"`
}

// Pair returns the model pair for a role.
func (p Profile) Pair(role Role) (ModelPair, error) {
	switch role {
	case RoleDiagnosis:
		return p.Diagnosis, nil
	case RoleSynthesis:
		return p.Synthesis, nil
	default:
		return ModelPair{}, fmt.Errorf("unknown role %q", role)
	}
}

// Built-in profile names.
const (
	ProfileFree   = "free"
	ProfilePaid   = "paid"
	ProfileCustom = "custom"
)

// FreeProfile prefers the zero-cost model tier, falling back to the paid
// tier when the free quota is exhausted.
func FreeProfile() Profile {
	return Profile{
		Name: ProfileFree,
		Diagnosis: ModelPair{
			Primary:  "meta-llama/llama-3.3-70b-instruct:free",
			Fallback: "meta-llama/llama-3.3-70b-instruct",
		},
		Synthesis: ModelPair{
			Primary:  "deepseek/deepseek-r1-0528:free",
			Fallback: "deepseek/deepseek-chat",
		},
	}
}

// PaidProfile prefers the paid tier, falling back to the free tier on spend
// limits.
func PaidProfile() Profile {
	return Profile{
		Name: ProfilePaid,
		Diagnosis: ModelPair{
			Primary:  "meta-llama/llama-3.3-70b-instruct",
			Fallback: "meta-llama/llama-3.3-70b-instruct:free",
		},
		Synthesis: ModelPair{
			Primary:  "deepseek/deepseek-chat",
			Fallback: "deepseek/deepseek-r1-0528:free",
		},
	}
}

// CustomProfile uses the user-supplied model identifiers with no fallback.
func CustomProfile(diagnosisModel, synthesisModel string) Profile {
	return Profile{
		Name:      ProfileCustom,
		Diagnosis: ModelPair{Primary: diagnosisModel},
		Synthesis: ModelPair{Primary: synthesisModel},
	}
}

// Retry budget bounds. Values outside the range are clamped, not rejected.
const (
	DefaultMaxRetries = 2
	MinRetries        = 0
	MaxRetries        = 10
)

// UserConfig is the persisted local configuration file.
type UserConfig struct {
	OpenRouterAPIKey     string `json:"openrouter_api_key"`
	MaxRetries           int    `json:"max_retries"`
	Profile              string `json:"profile"`
	CustomDiagnosisModel string `json:"custom_diagnosis_model,omitempty"`
	CustomSynthesisModel string `json:"custom_synthesis_model,omitempty"`
}

// DefaultUserConfig returns the defaults applied when no file exists.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		MaxRetries: DefaultMaxRetries,
		Profile:    ProfileFree,
	}
}

// ConfigFileName is the persisted config file, kept under a dot directory
// in the working tree so it stays out of version control.
const ConfigFileName = ".dataclinic/config.json"

// DefaultPath returns the config path under dir (or the working directory).
func DefaultPath(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config file at path, merging over defaults. A missing or
// corrupt file yields pure defaults rather than an error.
func Load(path string) UserConfig {
	cfg := DefaultUserConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultUserConfig()
	}
	cfg.MaxRetries = clampRetries(cfg.MaxRetries)
	if cfg.Profile == "" {
		cfg.Profile = ProfileFree
	}
	return cfg
}

// Save writes the config file, creating its directory as needed.
func Save(path string, cfg UserConfig) error {
	cfg.MaxRetries = clampRetries(cfg.MaxRetries)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func clampRetries(n int) int {
	if n < MinRetries {
		return MinRetries
	}
	if n > MaxRetries {
		return MaxRetries
	}
	return n
}

// ResolveProfile maps the persisted profile name to a concrete Profile.
// Unknown names fall back to the free profile.
func (c UserConfig) ResolveProfile() Profile {
	switch c.Profile {
	case ProfilePaid:
		return PaidProfile()
	case ProfileCustom:
		return CustomProfile(c.CustomDiagnosisModel, c.CustomSynthesisModel)
	default:
		return FreeProfile()
	}
}

// APIKey resolves the OpenRouter key: config file first, then the
// environment, then a .env file in the working directory.
func (c UserConfig) APIKey() string {
	if c.OpenRouterAPIKey != "" {
		return c.OpenRouterAPIKey
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		return key
	}
	if env, err := godotenv.Read(); err == nil {
		if key := env["OPENROUTER_API_KEY"]; key != "" {
			return key
		}
	}
	return ""
}
