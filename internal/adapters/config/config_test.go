package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Driver:       "clickhouse",
			Host:         "localhost",
			Port:         9000,
			Database:     "segment",
			User:         "dashboard",
			Password:     "pw",
			PoolSize:     4,
			SessionTTL:   5 * time.Minute,
			QueryTimeout: time.Minute,
		},
		Cache: CacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 100,
		},
		Business: BusinessConfig{
			LTVAnnualMultiplier: 12,
			AvgDaysPerMonth:     30.44,
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("postgres driver is accepted", func(t *testing.T) {
		cfg := validConfig()
		cfg.Warehouse.Driver = "postgres"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported driver", func(c *Config) { c.Warehouse.Driver = "snowflake" }},
		{"no credentials", func(c *Config) { c.Warehouse.Password = "" }},
		{"zero pool size", func(c *Config) { c.Warehouse.PoolSize = 0 }},
		{"zero session ttl", func(c *Config) { c.Warehouse.SessionTTL = 0 }},
		{"zero query timeout", func(c *Config) { c.Warehouse.QueryTimeout = 0 }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero cache entries", func(c *Config) { c.Cache.MaxEntries = 0 }},
		{"zero ltv multiplier", func(c *Config) { c.Business.LTVAnnualMultiplier = 0 }},
		{"zero avg days per month", func(c *Config) { c.Business.AvgDaysPerMonth = 0 }},
		{"refresh enabled without interval", func(c *Config) { c.Refresh.Interval = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("private key path is an alternative to a password", func(t *testing.T) {
		cfg := validConfig()
		cfg.Warehouse.Password = ""
		cfg.Warehouse.PrivateKeyPath = "/etc/keys/warehouse.p8"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
