package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = "/var/lib/moneymngr/ledger.db"
	cfg.Backup.Bucket = "my-bucket"
	cfg.Backup.Interval = 15 * time.Minute
	cfg.Parser.AutoSubmitDelay = 3 * time.Second

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "moneymngr.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "INR", cfg.Currency.Code)
	assert.Equal(t, "₹", cfg.Currency.Symbol)
	assert.InDelta(t, 0.7, cfg.Parser.AccountMinConfidence, 0.001)
	assert.InDelta(t, 0.6, cfg.Parser.CategoryMinConfidence, 0.001)
	assert.Equal(t, 70, cfg.Parser.AutoSubmitConfidence)
	assert.Equal(t, 5*time.Second, cfg.Parser.AutoSubmitDelay)
	assert.Empty(t, cfg.Backup.Bucket)
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("currency:\n  code: USD\n  symbol: $\nparser:\n  auto_submit_delay: 10s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.Currency.Code)
	assert.Equal(t, "$", cfg.Currency.Symbol)
	assert.Equal(t, 10*time.Second, cfg.Parser.AutoSubmitDelay)
	assert.Equal(t, "moneymngr.db", cfg.Database.Path)
	assert.InDelta(t, 0.7, cfg.Parser.AccountMinConfidence, 0.001)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MONEYMNGR_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("MONEYMNGR_BACKUP_BUCKET", "env-bucket")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, "env-bucket", cfg.Backup.Bucket)
	assert.Equal(t, "INR", cfg.Currency.Code)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "path: moneymngr.db")
	assert.Contains(t, contents, "code: INR")
	assert.Contains(t, contents, "auto_submit_delay: 5s")
	assert.Contains(t, contents, "8080")
}

func TestThresholds(t *testing.T) {
	th := ParserConfig{AccountMinConfidence: 0.8, AutoSubmitConfidence: 90}.Thresholds()
	assert.InDelta(t, 0.8, th.AccountMin, 0.001)
	assert.InDelta(t, 0.6, th.CategoryMin, 0.001)
	assert.Equal(t, 90, th.AutoSubmit)
}

func TestImportLocation(t *testing.T) {
	loc, err := ImportConfig{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = ImportConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = ImportConfig{Timezone: "Not/AZone"}.Location()
	assert.Error(t, err)
}
