// Package container provides dependency injection and lifecycle management
// for the procurement engine.
package container

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lock drivers
const (
	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// Config holds all configuration for the Container.
type Config struct {
	Database    DatabaseConfig
	Lock        LockConfig
	Lark        LarkConfig
	Storage     StorageConfig
	Procurement ProcurementConfig
	Server      ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LockConfig selects the per-entity lock driver.
type LockConfig struct {
	// Driver is "memory" for a single process or "redis" for several
	Driver string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL bounds how long a crashed holder keeps a redis lock
	TTL time.Duration

	// Wait is how long an operation waits for a busy entity before ErrEntityBusy
	Wait time.Duration
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
	BaseURL   string

	// ApproversOpenID receives approval pings; empty disables them
	ApproversOpenID string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// ExportDir receives comparison spreadsheets
	ExportDir string
}

// ProcurementConfig holds the purchasing policy.
type ProcurementConfig struct {
	TwoStepValidation      bool
	DoubleValidationAmount decimal.Decimal
	ManagerGroupID         int64
	AutoSubscribeVendor    bool

	// SiteWarehouses maps a site location to the warehouse that serves it
	SiteWarehouses map[int64]int64
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	AllowedOrigins []string

	AuthEnabled bool
	JWTSecret   string
	TokenTTL    time.Duration

	RateLimitEnabled bool
	// RateLimit uses the limiter format, e.g. "100-M"
	RateLimit string
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch c.Lock.Driver {
	case LockDriverMemory:
	case LockDriverRedis:
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis lock driver")
		}
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.Lock.Wait <= 0 {
		return fmt.Errorf("lock wait must be positive")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark app ID is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark app secret is required")
		}
	}

	if c.Storage.ExportDir == "" {
		return fmt.Errorf("export directory is required")
	}

	if c.Procurement.TwoStepValidation && !c.Procurement.DoubleValidationAmount.IsPositive() {
		return fmt.Errorf("double validation amount must be positive when two-step validation is on")
	}

	if c.Server.AuthEnabled && c.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required when auth is enabled")
	}
	if c.Server.RateLimitEnabled && c.Server.RateLimit == "" {
		return fmt.Errorf("rate limit is required when rate limiting is enabled")
	}

	return nil
}
