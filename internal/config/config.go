package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"storefront-tma-backend/internal/logger"
	"storefront-tma-backend/internal/store"
)

type Config struct {
	HTTP struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"http"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Telegram struct {
		BotToken       string        `yaml:"botToken"`
		InitDataMaxAge time.Duration `yaml:"initDataMaxAge"`
	} `yaml:"telegram"`

	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
	} `yaml:"auth"`

	Admin struct {
		SeedEnabled  bool   `yaml:"seedEnabled"`
		SeedPassword string `yaml:"seedPassword"`
	} `yaml:"admin"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func defaults() Config {
	cfg := Config{}
	cfg.HTTP.Port = "8080"
	cfg.HTTP.AllowedOrigins = []string{"*"}
	cfg.Database.Driver = store.DriverSQLite
	cfg.Database.DSN = "data/storefront.db"
	cfg.Telegram.InitDataMaxAge = 24 * time.Hour
	cfg.Admin.SeedEnabled = true
	cfg.Admin.SeedPassword = "admin123"
	cfg.Log.Level = "info"
	cfg.Log.Format = logger.FormatJSON
	return cfg
}

// Load reads defaults, then the YAML file at CONFIG_PATH, then environment
// overrides. Missing secrets are not an error here: requests that need them
// fail with CONFIGURATION_ERROR, see MissingSecrets.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	// Environment overrides (expected in deploy).
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_INIT_DATA_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse TELEGRAM_INIT_DATA_MAX_AGE: %w", err)
		}
		cfg.Telegram.InitDataMaxAge = d
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_SEED_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse ADMIN_SEED_ENABLED: %w", err)
		}
		cfg.Admin.SeedEnabled = b
	}
	if v := os.Getenv("ADMIN_SEED_PASSWORD"); v != "" {
		cfg.Admin.SeedPassword = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q (set database.driver or DATABASE_DRIVER to sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("missing database dsn (set database.dsn in config or DATABASE_URL)")
	}
	if c.Telegram.InitDataMaxAge <= 0 {
		return errors.New("telegram.initDataMaxAge must be positive")
	}
	switch c.Log.Format {
	case logger.FormatJSON, logger.FormatConsole:
	default:
		return fmt.Errorf("unsupported log format %q (json or console)", c.Log.Format)
	}
	if c.Admin.SeedEnabled && c.Admin.SeedPassword == "" {
		return errors.New("admin.seedPassword must be set when admin.seedEnabled is true")
	}
	return nil
}

// MissingSecrets lists the environment variables whose absence will make
// guarded routes answer CONFIGURATION_ERROR.
func (c Config) MissingSecrets() []string {
	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	return missing
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
