package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/config"
)

// execute runs the command tree in-process and restores flag defaults afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(resetFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// cleanEnv clears every variable the config layer reads.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvConfigPath, config.EnvDatabaseURL, config.EnvGeminiAPIKey, config.EnvOpenAIAPIKey,
		config.EnvSocialToken, config.EnvStorageAccessKey, config.EnvStorageSecretKey,
		config.EnvTelegramToken, config.EnvGatewayAPIKey, config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"scrape", "enrich", "deliver", "run", "migrate", "serve", "config"} {
		assert.Contains(t, names, want)
	}
}

func TestConfigCommand_FlagOverrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv(config.EnvDatabaseURL, "postgres://env@localhost/radar")

	out, err := execute(t, "config",
		"--db-url", "postgres://flag@localhost/radar",
		"--log-level", "warn",
		"--log-format", "json")
	require.NoError(t, err)

	assert.Contains(t, out, "level: warn")
	assert.Contains(t, out, "format: json")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "postgres://")
}

func TestConfigCommand_VerboseRaisesLogLevel(t *testing.T) {
	cleanEnv(t)
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/radar")

	out, err := execute(t, "config", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
}

func TestConfigCommand_ReadsFileAndRedactsSecrets(t *testing.T) {
	cleanEnv(t)
	t.Setenv(config.EnvGeminiAPIKey, "gemini-secret")
	t.Setenv(config.EnvSocialToken, "social-secret")

	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: postgres://file@localhost/radar
  max_conns: 2
sources:
  - id: ig
    kind: social
    accounts: [infolomba]
server:
  addr: 127.0.0.1:9999
`), 0o600))

	out, err := execute(t, "config", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "127.0.0.1:9999")
	assert.Contains(t, out, "infolomba")
	assert.NotContains(t, out, "gemini-secret")
	assert.NotContains(t, out, "social-secret")
	assert.NotContains(t, out, "postgres://file")
}

func TestConfigCommand_MissingDatabaseURL(t *testing.T) {
	cleanEnv(t)

	_, err := execute(t, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}

func TestEnrichCommand_RequiresIDs(t *testing.T) {
	cleanEnv(t)

	_, err := execute(t, "enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ids is required")
}

func TestEnrichCommand_RejectsBadIDs(t *testing.T) {
	cleanEnv(t)

	_, err := execute(t, "enrich", "--ids", "1,x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid record id")
}

func TestRedact_LeavesOriginalUntouched(t *testing.T) {
	cfg := config.Default()
	cfg.Database.URL = "postgres://localhost/radar"
	cfg.Sources[0].Token = "abc"
	cfg.Delivery.Telegram.BotToken = "tg"

	out := redact(*cfg)

	assert.Equal(t, redacted, out.Database.URL)
	assert.Equal(t, redacted, out.Sources[0].Token)
	assert.Equal(t, redacted, out.Delivery.Telegram.BotToken)
	assert.Empty(t, out.Providers.Gemini.APIKey, "empty secrets stay empty")

	assert.Equal(t, "postgres://localhost/radar", cfg.Database.URL)
	assert.Equal(t, "abc", cfg.Sources[0].Token)
}
