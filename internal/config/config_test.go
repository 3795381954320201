package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Keep ambient credentials out of the assertions.
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "github", cfg.VCS)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, VerbosityNormal, cfg.Verbosity)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.FileTimeout)
	assert.Equal(t, time.Duration(0), cfg.RunTimeout)
	assert.Equal(t, ".", cfg.RepoRoot)
	assert.Empty(t, cfg.Exclude)
	assert.NotNil(t, cfg.Viper)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOREV_REPO", "acme/widgets")
	t.Setenv("AUTOREV_PROVIDER", "Anthropic")
	t.Setenv("AUTOREV_VERBOSITY", "detailed")
	t.Setenv("AUTOREV_CONCURRENCY", "8")
	t.Setenv("AUTOREV_EXCLUDE", ".proto, gen_*.go")
	t.Setenv("AUTOREV_DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", cfg.Repo)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, VerbosityDetailed, cfg.Verbosity)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, []string{".proto", "gen_*.go"}, cfg.Exclude)
	assert.True(t, cfg.Debug)
}

func TestLoad_GitHubTokenFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOREV_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.Token)
}

func TestLoad_ExplicitTokenWinsOverFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOREV_TOKEN", "explicit")
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Token)
}

func TestLoad_ConcurrencyFloor(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUTOREV_CONCURRENCY", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestNormalizeVerbosity(t *testing.T) {
	assert.Equal(t, VerbosityMinimal, normalizeVerbosity(" MINIMAL "))
	assert.Equal(t, VerbosityDetailed, normalizeVerbosity("detailed"))
	assert.Equal(t, VerbosityNormal, normalizeVerbosity("normal"))
	assert.Equal(t, VerbosityNormal, normalizeVerbosity("whatever"))
	assert.Equal(t, VerbosityNormal, normalizeVerbosity(""))
}

func TestSplitPatterns(t *testing.T) {
	assert.Nil(t, splitPatterns(""))
	assert.Nil(t, splitPatterns("   "))
	assert.Equal(t, []string{".md"}, splitPatterns(".md"))
	assert.Equal(t, []string{".md", "go.sum"}, splitPatterns(" .md , go.sum ,"))
}

func TestProviderConfig_FromFileBlock(t *testing.T) {
	v := viper.New()
	v.Set("providers.openai.api_key", "sk-from-file")
	v.Set("providers.openai.model", "gpt-4o-mini")

	t.Setenv("OPENAI_API_KEY", "")
	cfg := &Config{Viper: v}
	sub := cfg.ProviderConfig("openai")
	assert.Equal(t, "sk-from-file", sub.GetString("api_key"))
	assert.Equal(t, "gpt-4o-mini", sub.GetString("model"))
}

func TestProviderConfig_EnvOverridesFile(t *testing.T) {
	v := viper.New()
	v.Set("providers.openai.api_key", "sk-from-file")

	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	cfg := &Config{Viper: v}
	sub := cfg.ProviderConfig("openai")
	assert.Equal(t, "sk-from-env", sub.GetString("api_key"))
}

func TestProviderConfig_UnknownProviderGenericEnv(t *testing.T) {
	t.Setenv("AUTOREV_LOCAL_API_KEY", "local-key")
	cfg := &Config{Viper: viper.New()}
	sub := cfg.ProviderConfig("local")
	assert.Equal(t, "local-key", sub.GetString("api_key"))
}
