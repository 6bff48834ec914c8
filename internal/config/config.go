package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"10485760" validate:"gt=0"`
}

// StoreConfig contains document store configuration
type StoreConfig struct {
	URI                 string        `yaml:"uri" envconfig:"URI" default:"mongodb://localhost:27017" validate:"required"`
	Database            string        `yaml:"database" envconfig:"DATABASE" default:"anemiatrack" validate:"required"`
	MonthlyCollection   string        `yaml:"monthly_collection" envconfig:"MONTHLY_COLLECTION" default:"anemiaDataMonthly"`
	QuarterlyCollection string        `yaml:"quarterly_collection" envconfig:"QUARTERLY_COLLECTION" default:"anemiaDataQuarterly"`
	UsersCollection     string        `yaml:"users_collection" envconfig:"USERS_COLLECTION" default:"users"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" default:"10s"`
	OperationTimeout    time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"15s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	BcryptCost     int             `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"10" validate:"gte=4,lte=31"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PipelineConfig contains data pipeline configuration
type PipelineConfig struct {
	// StartYear seeds the first period of a brand-new district series and
	// the first quarter label of a brand-new state document.
	StartYear int `yaml:"start_year" envconfig:"START_YEAR" default:"2021" validate:"gte=2000,lte=2100"`
}

// Load loads configuration from environment variables and an optional
// YAML config file (path in ANEMIA_CONFIG_FILE, default config.yaml).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ANEMIA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := os.Getenv("ANEMIA_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays file values onto the env-derived config.
// Precedence is explicit env var > file > envconfig default; envconfig
// has already filled defaults for unset vars, so the zero-value checks
// alone cannot tell "defaulted" from "set" and the merge consults the
// environment directly.
func mergeConfigs(fileConfig, envConfig Config) Config {
	if !envSet("ANEMIA_SERVER_PORT") && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if !envSet("ANEMIA_STORE_URI") && fileConfig.Store.URI != "" {
		envConfig.Store.URI = fileConfig.Store.URI
	}
	if !envSet("ANEMIA_STORE_DATABASE") && fileConfig.Store.Database != "" {
		envConfig.Store.Database = fileConfig.Store.Database
	}
	if !envSet("ANEMIA_LOGGING_LEVEL") && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if !envSet("ANEMIA_PIPELINE_START_YEAR") && fileConfig.Pipeline.StartYear != 0 {
		envConfig.Pipeline.StartYear = fileConfig.Pipeline.StartYear
	}
	return envConfig
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// validate checks the merged configuration against the struct tags.
func (c *Config) validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid value for %s (constraint %q): %v",
				first.Namespace(), first.Tag(), first.Value())
		}
		return err
	}
	return nil
}
