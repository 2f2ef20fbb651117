package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlaceholderSecret is the value shipped in sample .env files. It is rejected in production.
const PlaceholderSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080" validate:"required"`
	CompanyName string `env:"COMPANY_NAME" envDefault:"Era"`

	BackendURL         string        `env:"BACKEND_URL" envDefault:"https://localhost:7097" validate:"required,url"`
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	BackendInsecureTLS bool          `env:"BACKEND_INSECURE_TLS"`

	// Service token sent to the backend. Empty secret disables it.
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISS" envDefault:"era-inventory-panel"`
	JWTAudience string        `env:"JWT_AUD" envDefault:"era-inventory-api"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"1h"`

	PageSize       int           `env:"PAGE_SIZE" envDefault:"10" validate:"oneof=10 25 50 100"`
	PageWindow     int           `env:"PAGE_WINDOW" envDefault:"5" validate:"min=3,max=15"`
	HealthInterval time.Duration `env:"HEALTH_INTERVAL" envDefault:"5s" validate:"gte=1s"`
	MessageTimeout time.Duration `env:"MESSAGE_TIMEOUT" envDefault:"5s" validate:"gt=0"`

	EnableMetrics bool   `env:"ENABLE_METRICS"`
	ActivityDSN   string `env:"ACTIVITY_DSN"`
	ImportMapping string `env:"IMPORT_MAPPING"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogPretty bool   `env:"LOG_PRETTY"`

	ConfigFile string         `env:"PANEL_CONFIG"`
	Entities   []EntityConfig `validate:"min=1,dive"`
}

// EntityConfig describes a record table managed through the generic table pages.
type EntityConfig struct {
	Name       string   `yaml:"name" validate:"required,alphanum"`
	Label      string   `yaml:"label"`
	Tooltip    string   `yaml:"tooltip"`
	Required   []string `yaml:"required"`
	Searchable bool     `yaml:"searchable"`
}

type fileConfig struct {
	Entities []EntityConfig `yaml:"entities"`
}

// DefaultEntities are the tables managed when no config file overrides them.
func DefaultEntities() []EntityConfig {
	return []EntityConfig{
		{Name: "Item", Label: "Items", Tooltip: "Includes hardware, furniture, or any tangible items.", Searchable: true},
		{Name: "Vendor", Label: "Vendors", Tooltip: "External suppliers and service providers", Searchable: true},
	}
}

// Load reads .env (without overriding the real environment), the process
// environment and the optional YAML file named by PANEL_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.Entities = DefaultEntities()

	if cfg.ConfigFile != "" {
		data, err := os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyYAML(data); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if len(fc.Entities) > 0 {
		for i := range fc.Entities {
			if fc.Entities[i].Label == "" {
				fc.Entities[i].Label = fc.Entities[i].Name + "s"
			}
		}
		c.Entities = fc.Entities
	}
	return nil
}

// Validate checks the configuration for values the panel cannot run with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.JWTSecret != "" {
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters")
		}
		if c.JWTIssuer == "" {
			return errors.New("JWT_ISS is required when JWT_SECRET is set")
		}
		if c.JWTAudience == "" {
			return errors.New("JWT_AUD is required when JWT_SECRET is set")
		}
		if c.JWTExpiry < time.Minute {
			return errors.New("JWT_EXPIRY must be at least 1m")
		}
		if c.JWTExpiry > 30*24*time.Hour {
			return errors.New("JWT_EXPIRY must not exceed 30 days")
		}
		if c.IsProduction() && c.JWTSecret == PlaceholderSecret {
			return errors.New("JWT_SECRET must be changed in production")
		}
	}

	seen := map[string]bool{}
	for _, e := range c.Entities {
		key := strings.ToLower(e.Name)
		if seen[key] {
			return fmt.Errorf("entity %q configured twice", e.Name)
		}
		seen[key] = true
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Entity looks up a configured entity by name, case-insensitively.
func (c *Config) Entity(name string) (EntityConfig, bool) {
	for _, e := range c.Entities {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return EntityConfig{}, false
}

// LoadAndValidate loads and validates the configuration.
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
