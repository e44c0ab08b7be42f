// Package config loads application settings through viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/pattern"
	"github.com/Veraticus/spice-ledger/internal/sheets"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// EnvPrefix prefixes every environment override, e.g. SPICE_LLM_PROVIDER.
const EnvPrefix = "SPICE"

// apiKeyEnv maps a provider to the conventional variable holding its key.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// Database selects the persistence backend.
type Database struct {
	Driver string
	Path   string
}

// Logging configures the global logger.
type Logging struct {
	Level  string
	Format string
}

// Server configures the HTTP API. With TLS set a self-signed certificate is
// kept in CertDir.
type Server struct {
	Addr    string
	CertDir string
	TLS     bool
}

// Config is the fully resolved application configuration.
type Config struct {
	Database Database
	Logging  Logging
	Server   Server
	Sheets   sheets.Config
	LLM      llm.Config
	Intake   intake.Config
	Rules    []pattern.Rule
}

// New returns a viper instance reading SPICE_* environment overrides, with
// every default registered.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.cache_ttl", 15*time.Minute)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("intake.debounce", intake.DefaultDebounce)
	v.SetDefault("intake.min_length", intake.DefaultMinInputLength)

	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "")
}

// ReadFile loads path, or config.yaml from the default directory or the
// working directory when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(ExpandPath(path))
	} else {
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("%w: failed to read config: %v", common.ErrInvalidConfig, err)
	}
	return nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Database: Database{
			Driver: strings.ToLower(v.GetString("database.driver")),
			Path:   ExpandPath(v.GetString("database.path")),
		},
		Logging: Logging{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Server: Server{
			Addr:    v.GetString("server.addr"),
			TLS:     v.GetBool("server.tls"),
			CertDir: ExpandPath(v.GetString("server.cert_dir")),
		},
		Sheets: LoadSheetsConfig(v),
		LLM: llm.Config{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			APIKey:      v.GetString("llm.api_key"),
			Model:       v.GetString("llm.model"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			MaxRetries:  v.GetInt("llm.max_retries"),
			RetryDelay:  v.GetDuration("llm.retry_delay"),
			CacheTTL:    v.GetDuration("llm.cache_ttl"),
			RateLimit:   v.GetInt("llm.rate_limit"),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Intake: intake.Config{
			Debounce:       v.GetDuration("intake.debounce"),
			MinInputLength: v.GetInt("intake.min_length"),
		},
	}

	if err := v.UnmarshalKey("rules", &cfg.Rules); err != nil {
		return Config{}, fmt.Errorf("%w: rules: %v", common.ErrInvalidConfig, err)
	}

	if cfg.LLM.APIKey == "" {
		if env, ok := apiKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath(cfg.Database.Driver)
	}
	if cfg.Server.CertDir == "" {
		cfg.Server.CertDir = filepath.Join(DefaultDir(), "certs")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultDatabasePath(driver string) string {
	if driver == DriverFile {
		return filepath.Join(DefaultDir(), "ledger")
	}
	return filepath.Join(DefaultDir(), "ledger.db")
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverFile:
	default:
		return fmt.Errorf("%w: database.driver must be %q or %q, got %q",
			common.ErrInvalidConfig, DriverSQLite, DriverFile, c.Database.Driver)
	}

	if !slices.Contains(llm.Providers, c.LLM.Provider) {
		return fmt.Errorf("%w: llm.provider must be one of %s, got %q",
			common.ErrInvalidConfig, strings.Join(llm.Providers, ", "), c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature must be between 0 and 2", common.ErrInvalidConfig)
	}
	if c.LLM.MaxTokens < 0 || c.LLM.MaxRetries < 0 || c.LLM.RateLimit < 0 {
		return fmt.Errorf("%w: llm limits cannot be negative", common.ErrInvalidConfig)
	}
	if c.LLM.RetryDelay < 0 || c.LLM.CacheTTL < 0 || c.LLM.Timeout < 0 {
		return fmt.Errorf("%w: llm durations cannot be negative", common.ErrInvalidConfig)
	}

	if c.Intake.Debounce < 0 || c.Intake.MinInputLength < 0 {
		return fmt.Errorf("%w: intake settings cannot be negative", common.ErrInvalidConfig)
	}

	for _, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// RequireAPIKey reports a missing provider key as a config error naming the
// variable to set.
func (c Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%w: no API key for %s; set %s or llm.api_key",
		common.ErrMissingConfig, c.LLM.Provider, apiKeyEnv[c.LLM.Provider])
}
