package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/factory"
	"github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/payout"
	"github.com/kilianp07/lineauction/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: LA_PAYOUT__INTERVAL_SECONDS sets payout.interval_seconds.
const EnvPrefix = "LA_"

type Config struct {
	Store   StoreConfig    `json:"store"`
	Auction AuctionConfig  `json:"auction"`
	Duty    duty.Rules     `json:"duty"`
	Payout  payout.Config  `json:"payout"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Sentry  SentryConfig   `json:"sentry"`
}

// StoreConfig selects the persistence backend, e.g. {type: sqlite, conf:
// {dsn: data/lineauction.db}}.
type StoreConfig struct {
	factory.ModuleConfig `json:",squash" mapstructure:",squash"`
}

func (c *StoreConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "memory"
	}
}

func (c StoreConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("store.type is required")
	}
	return nil
}

// Load reads the optional .env file, the config file at path (YAML or
// JSON, skipped when path is empty) and LA_ environment overrides, then
// applies defaults and validates every section.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Store.SetDefaults()
	c.Auction.SetDefaults()
	if c.Duty.MaxContinuousMinutes == 0 && c.Duty.BreakMinutes == 0 {
		c.Duty = duty.DefaultRules()
	}
	c.Payout.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Auction.Validate(); err != nil {
		return err
	}
	if c.Duty.MaxContinuousMinutes <= 0 || c.Duty.BreakMinutes < 0 {
		return fmt.Errorf("duty: max_continuous_minutes must be positive and break_minutes not negative")
	}
	if err := c.Payout.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	return nil
}
