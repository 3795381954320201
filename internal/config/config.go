// Package config builds the read-only runtime configuration passed
// through the pipeline. Nothing downstream reads ambient state; the
// Config value is the single source of truth for a run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Verbosity levels controlling which findings are published.
const (
	VerbosityMinimal  = "minimal"
	VerbosityNormal   = "normal"
	VerbosityDetailed = "detailed"
)

// Config contains everything a review run needs. Read-only after Load.
type Config struct {
	// Repo is the target "owner/name" repository.
	Repo string

	// VCS is the platform provider name ("github").
	VCS string

	// Token is the pre-obtained platform credential.
	Token string

	// BaseURL overrides the platform API endpoint (for self-hosted).
	BaseURL string

	// Provider is the analysis provider name ("openai", "anthropic").
	Provider string

	// Verbosity is one of minimal, normal, detailed.
	Verbosity string

	// Concurrency bounds the per-file worker pool.
	Concurrency int

	// FileTimeout bounds one analysis call.
	FileTimeout time.Duration

	// RunTimeout bounds the whole run. Zero means no overall deadline.
	RunTimeout time.Duration

	// Exclude overrides the built-in deny-list when non-empty.
	Exclude []string

	// InstructionsPath points at the review-instructions file.
	InstructionsPath string

	// RepoRoot is the local checkout used for branch detection and
	// repository guideline discovery.
	RepoRoot string

	Debug bool

	// Viper carries the raw store so provider factories can read their
	// own config subtrees.
	Viper *viper.Viper
}

// Load builds a Config from defaults, the optional config file at
// $HOME/.config/autorev/config.yml, and AUTOREV_* environment variables
// (later sources win).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("vcs", "github")
	v.SetDefault("provider", "openai")
	v.SetDefault("verbosity", VerbosityNormal)
	v.SetDefault("concurrency", 4)
	v.SetDefault("file_timeout", 120*time.Second)
	v.SetDefault("run_timeout", 0)
	v.SetDefault("repo_root", ".")

	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "autorev", "config.yml"))
		v.SetConfigType("yaml")
		// Missing config file is fine; defaults and env cover it.
		_ = v.ReadInConfig()
	}

	v.SetEnvPrefix("AUTOREV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Repo:             v.GetString("repo"),
		VCS:              v.GetString("vcs"),
		Token:            v.GetString("token"),
		BaseURL:          v.GetString("base_url"),
		Provider:         strings.ToLower(v.GetString("provider")),
		Verbosity:        normalizeVerbosity(v.GetString("verbosity")),
		Concurrency:      v.GetInt("concurrency"),
		FileTimeout:      v.GetDuration("file_timeout"),
		RunTimeout:       v.GetDuration("run_timeout"),
		Exclude:          splitPatterns(v.GetString("exclude")),
		InstructionsPath: v.GetString("instructions"),
		RepoRoot:         v.GetString("repo_root"),
		Debug:            v.GetBool("debug"),
		Viper:            v,
	}

	if cfg.Token == "" {
		cfg.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return cfg, nil
}

// ProviderConfig returns a viper scoped to the named analysis
// provider's block, with well-known environment variables bound so the
// tool is configurable entirely through the shell.
func (c *Config) ProviderConfig(name string) *viper.Viper {
	sub := c.Viper.Sub("providers." + name)
	if sub == nil {
		sub = viper.New()
	}
	bindProviderEnv(name, sub)
	return sub
}

func bindProviderEnv(name string, v *viper.Viper) {
	switch name {
	case "openai":
		overrideFromEnv(v, "api_key", "OPENAI_API_KEY")
		overrideFromEnv(v, "model", "OPENAI_API_MODEL")
		overrideFromEnv(v, "base_url", "OPENAI_API_BASE")
	case "anthropic":
		overrideFromEnv(v, "api_key", "ANTHROPIC_API_KEY")
		overrideFromEnv(v, "model", "ANTHROPIC_MODEL")
		overrideFromEnv(v, "base_url", "ANTHROPIC_API_BASE")
	default:
		prefix := strings.ToUpper(name)
		overrideFromEnv(v, "api_key", fmt.Sprintf("AUTOREV_%s_API_KEY", prefix))
		overrideFromEnv(v, "model", fmt.Sprintf("AUTOREV_%s_MODEL", prefix))
		overrideFromEnv(v, "base_url", fmt.Sprintf("AUTOREV_%s_BASE_URL", prefix))
	}
}

func overrideFromEnv(v *viper.Viper, key, envName string) {
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		v.Set(key, value)
	}
}

func normalizeVerbosity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case VerbosityMinimal:
		return VerbosityMinimal
	case VerbosityDetailed:
		return VerbosityDetailed
	default:
		return VerbosityNormal
	}
}

func splitPatterns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
