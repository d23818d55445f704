// Package config loads moneymngr.yaml. Every key can be overridden by an
// environment variable named MONEYMNGR_<SECTION>_<KEY>.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/moneymngr/moneymngr/internal/parser"
)

// FileName is the default config file name.
const FileName = "moneymngr.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MONEYMNGR"

// Config represents the top-level moneymngr.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Currency CurrencyConfig `yaml:"currency" mapstructure:"currency"`
	Parser   ParserConfig   `yaml:"parser" mapstructure:"parser"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
	Backup   BackupConfig   `yaml:"backup" mapstructure:"backup"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	API      APIConfig      `yaml:"api" mapstructure:"api"`
}

// DatabaseConfig locates the ledger database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig controls the console logger and the action log file.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// CurrencyConfig is used when formatting amounts for display.
type CurrencyConfig struct {
	Code   string `yaml:"code" mapstructure:"code"`
	Symbol string `yaml:"symbol" mapstructure:"symbol"`
}

// ParserConfig tunes the quick-entry and SMS parsers.
type ParserConfig struct {
	AccountMinConfidence  float64       `yaml:"account_min_confidence" mapstructure:"account_min_confidence"`
	CategoryMinConfidence float64       `yaml:"category_min_confidence" mapstructure:"category_min_confidence"`
	FuzzyMinSimilarity    float64       `yaml:"fuzzy_min_similarity" mapstructure:"fuzzy_min_similarity"`
	AutoSubmitConfidence  int           `yaml:"auto_submit_confidence" mapstructure:"auto_submit_confidence"`
	AutoSubmitDelay       time.Duration `yaml:"auto_submit_delay" mapstructure:"auto_submit_delay"`
}

// ImportConfig controls CSV imports.
type ImportConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`           // inbox scanned by "import --scan"
	Timezone string `yaml:"timezone" mapstructure:"timezone"` // zone for dates without an offset
}

// BackupConfig selects the remote object store. An empty bucket keeps
// backups under LocalDir instead of GCS, and snapshots under SnapshotDir
// when it is set.
type BackupConfig struct {
	Bucket      string        `yaml:"bucket" mapstructure:"bucket"`
	Prefix      string        `yaml:"prefix" mapstructure:"prefix"`
	LocalDir    string        `yaml:"local_dir" mapstructure:"local_dir"`
	SnapshotDir string        `yaml:"snapshot_dir" mapstructure:"snapshot_dir"`
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
}

// LLMConfig configures the optional SMS categorization suggester.
type LLMConfig struct {
	Model     string `yaml:"model" mapstructure:"model"`
	APIKeyEnv string `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// APIKey reads the key from the configured environment variable.
func (c LLMConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// Thresholds applies the configured confidences on top of the parser defaults.
func (c ParserConfig) Thresholds() parser.Thresholds {
	th := parser.DefaultThresholds()
	if c.AccountMinConfidence > 0 {
		th.AccountMin = c.AccountMinConfidence
	}
	if c.CategoryMinConfidence > 0 {
		th.CategoryMin = c.CategoryMinConfidence
	}
	if c.FuzzyMinSimilarity > 0 {
		th.MinSimilarity = c.FuzzyMinSimilarity
	}
	if c.AutoSubmitConfidence > 0 {
		th.AutoSubmit = c.AutoSubmitConfidence
	}
	return th
}

// Location resolves Timezone, defaulting to the local zone.
func (c ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("import timezone: %w", err)
	}
	return loc, nil
}

// Load reads a moneymngr.yaml file from disk and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return decode(data)
}

// LoadOrDefault is Load, except a missing file yields the defaults (still
// subject to env overrides).
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return decode(nil)
	}
	return cfg, err
}

func decode(data []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(data) > 0 {
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("currency.code", d.Currency.Code)
	v.SetDefault("currency.symbol", d.Currency.Symbol)
	v.SetDefault("parser.account_min_confidence", d.Parser.AccountMinConfidence)
	v.SetDefault("parser.category_min_confidence", d.Parser.CategoryMinConfidence)
	v.SetDefault("parser.fuzzy_min_similarity", d.Parser.FuzzyMinSimilarity)
	v.SetDefault("parser.auto_submit_confidence", d.Parser.AutoSubmitConfidence)
	v.SetDefault("parser.auto_submit_delay", d.Parser.AutoSubmitDelay)
	v.SetDefault("import.dir", d.Import.Dir)
	v.SetDefault("import.timezone", d.Import.Timezone)
	v.SetDefault("backup.bucket", d.Backup.Bucket)
	v.SetDefault("backup.prefix", d.Backup.Prefix)
	v.SetDefault("backup.local_dir", d.Backup.LocalDir)
	v.SetDefault("backup.snapshot_dir", d.Backup.SnapshotDir)
	v.SetDefault("backup.interval", d.Backup.Interval)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key_env", d.LLM.APIKeyEnv)
	v.SetDefault("api.addr", d.API.Addr)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	th := parser.DefaultThresholds()
	return &Config{
		Database: DatabaseConfig{Path: "moneymngr.db"},
		Log:      LogConfig{Level: "info", File: "logs/actions.csv"},
		Currency: CurrencyConfig{Code: "INR", Symbol: "₹"},
		Parser: ParserConfig{
			AccountMinConfidence:  th.AccountMin,
			CategoryMinConfidence: th.CategoryMin,
			FuzzyMinSimilarity:    th.MinSimilarity,
			AutoSubmitConfidence:  th.AutoSubmit,
			AutoSubmitDelay:       5 * time.Second,
		},
		Import: ImportConfig{Dir: "inbox", Timezone: "Local"},
		Backup: BackupConfig{
			Prefix:   "moneymngr",
			LocalDir: "backups",
		},
		LLM: LLMConfig{Model: parser.DefaultModel, APIKeyEnv: "GEMINI_API_KEY"},
		API: APIConfig{Addr: ":8080"},
	}
}
