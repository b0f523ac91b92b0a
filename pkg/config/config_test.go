package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/wordvault/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, store.DefaultMaxUnigrams, cfg.Dict.MaxUnigramCount)
	assert.Equal(t, store.DefaultMaxNgrams, cfg.Dict.MaxBigramCount)
	assert.Equal(t, store.DefaultGCBlockingWindow, cfg.Dict.GCBlockingWindow)
	assert.Equal(t, "en", cfg.Dict.Locale)
	assert.True(t, cfg.Server.RespectGCWindow)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Dict.MaxUnigramCount = 4096
	cfg.Dict.Locale = "de_DE"
	cfg.Server.AutoFlushOps = 16
	cfg.Log.Level = "debug"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[dict]\nmax_unigram_count = 2048\n")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2048, loaded.Dict.MaxUnigramCount)
	assert.Equal(t, store.DefaultMaxNgrams, loaded.Dict.MaxBigramCount)
	assert.Equal(t, "en", loaded.Dict.Locale)
	assert.True(t, loaded.Server.RespectGCWindow)
}

func TestPartialParseSalvagesTypedMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[dict]
max_unigram_count = "lots"
gc_blocking_window = 32

[log]
level = "debug"
`)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultMaxUnigrams, loaded.Dict.MaxUnigramCount)
	assert.Equal(t, 32, loaded.Dict.GCBlockingWindow)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"zero unigrams":     "[dict]\nmax_unigram_count = 0\n",
		"negative bigrams":  "[dict]\nmax_bigram_count = -3\n",
		"negative gc":       "[dict]\ngc_blocking_window = -1\n",
		"negative flush":    "[server]\nauto_flush_ops = -5\n",
		"unknown log level": "[log]\nlevel = \"screaming\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			writeFile(t, path, content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestInitConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadConfigWithPriorityUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Dict.Locale = "sv_SE"
	require.NoError(t, SaveConfig(cfg, path))
	t.Setenv(ConfigEnv, path)

	loaded, usedPath, err := LoadConfigWithPriority("")
	require.NoError(t, err)
	assert.Equal(t, path, usedPath)
	assert.Equal(t, "sv_SE", loaded.Dict.Locale)
}

func TestLoadConfigWithPriorityPrefersFlagOverEnv(t *testing.T) {
	dir := t.TempDir()
	flagPath := filepath.Join(dir, "flag.toml")
	envPath := filepath.Join(dir, "env.toml")

	flagCfg := DefaultConfig()
	flagCfg.Dict.Locale = "fr_FR"
	require.NoError(t, SaveConfig(flagCfg, flagPath))
	envCfg := DefaultConfig()
	envCfg.Dict.Locale = "es_ES"
	require.NoError(t, SaveConfig(envCfg, envPath))
	t.Setenv(ConfigEnv, envPath)

	loaded, usedPath, err := LoadConfigWithPriority(flagPath)
	require.NoError(t, err)
	assert.Equal(t, flagPath, usedPath)
	assert.Equal(t, "fr_FR", loaded.Dict.Locale)
}

func TestUpdatePersistsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	require.NoError(t, SaveConfig(cfg, path))

	maxUni := 999
	gc := 8
	require.NoError(t, cfg.Update(path, &maxUni, nil, &gc))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 999, reloaded.Dict.MaxUnigramCount)
	assert.Equal(t, store.DefaultMaxNgrams, reloaded.Dict.MaxBigramCount)
	assert.Equal(t, 8, reloaded.Dict.GCBlockingWindow)
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	bad := -1
	assert.Error(t, cfg.Update("", &bad, nil, nil))
}

func TestGetActiveConfigPath(t *testing.T) {
	abs := GetActiveConfigPath("some/config.toml")
	assert.True(t, filepath.IsAbs(abs))
	assert.NotEmpty(t, GetActiveConfigPath(""))
}
