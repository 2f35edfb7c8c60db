package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Warehouse WarehouseConfig `envconfig:"WAREHOUSE"`
	Cache     CacheConfig     `envconfig:"CACHE"`
	Business  BusinessConfig  `envconfig:"BUSINESS"`
	Server    ServerConfig    `envconfig:"SERVER"`
	Health    HealthConfig    `envconfig:"HEALTH"`
	Refresh   RefreshConfig   `envconfig:"REFRESH"`
	Logging   LoggingConfig   `envconfig:"LOGGING"`
}

// WarehouseConfig represents the analytical warehouse connection parameters.
// The identity fields (account, user, role, cluster, database, schema) are
// bound to every session created against the warehouse.
type WarehouseConfig struct {
	Driver         string        `envconfig:"WAREHOUSE_DRIVER" default:"clickhouse"`
	Host           string        `envconfig:"WAREHOUSE_HOST" default:"localhost"`
	Port           int           `envconfig:"WAREHOUSE_PORT" default:"9000"`
	Database       string        `envconfig:"WAREHOUSE_DATABASE" default:"segment"`
	Schema         string        `envconfig:"WAREHOUSE_SCHEMA" default:"public"`
	Account        string        `envconfig:"WAREHOUSE_ACCOUNT" required:"false"`
	User           string        `envconfig:"WAREHOUSE_USER" required:"true"`
	Role           string        `envconfig:"WAREHOUSE_ROLE" required:"false"`
	Cluster        string        `envconfig:"WAREHOUSE_CLUSTER" required:"false"`
	Password       string        `envconfig:"WAREHOUSE_PASSWORD" required:"false"`
	PrivateKeyPath string        `envconfig:"WAREHOUSE_PRIVATE_KEY_PATH" required:"false"`
	SSLMode        string        `envconfig:"WAREHOUSE_SSLMODE" default:"disable"`
	SessionTag     string        `envconfig:"WAREHOUSE_SESSION_TAG" default:"saas_metrics_dashboard"`
	PoolSize       int           `envconfig:"WAREHOUSE_POOL_SIZE" default:"4"`
	SessionTTL     time.Duration `envconfig:"WAREHOUSE_SESSION_TTL" default:"5m"`
	QueryTimeout   time.Duration `envconfig:"WAREHOUSE_QUERY_TIMEOUT" default:"60s"`
}

// CacheConfig represents the metric result cache parameters
type CacheConfig struct {
	TTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	MaxEntries int           `envconfig:"CACHE_MAX_ENTRIES" default:"100"`
}

// BusinessConfig carries the business parameters used by the derived
// acquisition-cost and lifetime-value metrics. These are product inputs,
// not engineering constants, and must stay overridable per deployment.
type BusinessConfig struct {
	DailySalesCost          float64 `envconfig:"BUSINESS_DAILY_SALES_COST" default:"550"`
	GrossProfitSubtraction  float64 `envconfig:"BUSINESS_GROSS_PROFIT_SUBTRACTION" default:"229"`
	MonthlyTeamCost         float64 `envconfig:"BUSINESS_MONTHLY_TEAM_COST" default:"17050"`
	LTVAnnualMultiplier     int     `envconfig:"BUSINESS_LTV_ANNUAL_MULTIPLIER" default:"12"`
	ZeroChurnLifetimeMonths int     `envconfig:"BUSINESS_ZERO_CHURN_LIFETIME_MONTHS" default:"60"`
	AvgDaysPerMonth         float64 `envconfig:"BUSINESS_AVG_DAYS_PER_MONTH" default:"30.44"`
}

// ServerConfig represents the metrics API server parameters
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8080"`
}

// HealthConfig represents the ops server (probes + scrape) parameters
type HealthConfig struct {
	Port string `envconfig:"HEALTH_PORT" default:"8081"`
}

// RefreshConfig represents the background summary refresh parameters
type RefreshConfig struct {
	Enabled  bool          `envconfig:"REFRESH_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	Window   time.Duration `envconfig:"REFRESH_WINDOW" default:"720h"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	switch c.Warehouse.Driver {
	case "clickhouse", "postgres":
	default:
		return fmt.Errorf("unsupported warehouse driver: %s", c.Warehouse.Driver)
	}

	if c.Warehouse.Password == "" && c.Warehouse.PrivateKeyPath == "" {
		return fmt.Errorf("either a warehouse password or a private key path must be configured")
	}

	if c.Warehouse.PoolSize < 1 {
		return fmt.Errorf("warehouse pool size must be at least 1")
	}
	if c.Warehouse.SessionTTL <= 0 {
		return fmt.Errorf("warehouse session TTL must be positive")
	}
	if c.Warehouse.QueryTimeout <= 0 {
		return fmt.Errorf("warehouse query timeout must be positive")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1")
	}

	if c.Business.LTVAnnualMultiplier < 1 {
		return fmt.Errorf("LTV annual multiplier must be at least 1")
	}
	if c.Business.AvgDaysPerMonth <= 0 {
		return fmt.Errorf("average days per month must be positive")
	}

	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive when refresh is enabled")
	}

	return nil
}
