package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Lock        LockConfig        `mapstructure:"lock"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Procurement ProcurementConfig `mapstructure:"procurement"`
	Export      ExportConfig      `mapstructure:"export"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LockConfig holds the per-entity lock settings
type LockConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Wait          time.Duration `mapstructure:"wait"`
}

// AuthConfig holds bearer token settings
type AuthConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig holds API rate limiting settings
type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Rate    string `mapstructure:"rate"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	AppID           string `mapstructure:"app_id"`
	AppSecret       string `mapstructure:"app_secret"`
	BaseURL         string `mapstructure:"base_url"`
	ApproversOpenID string `mapstructure:"approvers_open_id"`
}

// ProcurementConfig holds the purchasing policy
type ProcurementConfig struct {
	TwoStepValidation bool `mapstructure:"two_step_validation"`

	// DoubleValidationAmount is a decimal string so amounts never pass through float
	DoubleValidationAmount string `mapstructure:"double_validation_amount"`
	ManagerGroupID         int64  `mapstructure:"manager_group_id"`
	AutoSubscribeVendor    bool   `mapstructure:"auto_subscribe_vendor"`

	// SiteWarehouses maps site location IDs (as keys) to warehouse IDs
	SiteWarehouses map[string]int64 `mapstructure:"site_warehouses"`
}

// ExportConfig holds comparison export settings
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load loads configuration from file, a .env file and environment variables.
// A missing .env file is ignored.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/procurement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("lock.driver", "memory")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.wait", 10*time.Second)

	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("rate_limit.rate", "300-M")

	v.SetDefault("procurement.double_validation_amount", "5000")
	v.SetDefault("procurement.auto_subscribe_vendor", true)

	v.SetDefault("export.dir", "data/exports")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("lock.redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("lock.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Lock.Driver {
	case "memory":
	case "redis":
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("lock.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("lock.driver must be memory or redis, got %q", c.Lock.Driver)
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}

	if _, err := c.Procurement.doubleValidationAmount(); err != nil {
		return err
	}
	if _, err := c.Procurement.siteWarehouses(); err != nil {
		return err
	}

	return nil
}
