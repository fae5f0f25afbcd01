// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all runtime settings. Values come from SACCO_-prefixed
// environment variables, e.g. SACCO_JWT_SECRET.
type Config struct {
	Addr   string `envconfig:"ADDR" default:":8080"`
	DBPath string `envconfig:"DB_PATH" default:"sacco.db"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	// AMQPURL is optional; when empty, loan events are logged instead of
	// published.
	AMQPURL string `envconfig:"AMQP_URL"`

	DefaultInterestRate string `envconfig:"DEFAULT_INTEREST_RATE" default:"10"`
	MinimumDeposit      string `envconfig:"MINIMUM_DEPOSIT" default:"100"`
	MinimumBalance      string `envconfig:"MINIMUM_BALANCE" default:"0"`
}

// Load reads configuration from the environment and validates the decimal
// fields.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("sacco", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for name, v := range map[string]string{
		"SACCO_DEFAULT_INTEREST_RATE": cfg.DefaultInterestRate,
		"SACCO_MINIMUM_DEPOSIT":       cfg.MinimumDeposit,
		"SACCO_MINIMUM_BALANCE":       cfg.MinimumBalance,
	} {
		if _, err := decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	return &cfg, nil
}

// InterestRate returns the default interest rate as a decimal percentage.
func (c *Config) InterestRate() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultInterestRate)
}

// DepositFloor returns the minimum opening deposit.
func (c *Config) DepositFloor() decimal.Decimal {
	return decimal.RequireFromString(c.MinimumDeposit)
}

// BalanceFloor returns the minimum balance an account may hold after a
// withdrawal.
func (c *Config) BalanceFloor() decimal.Decimal {
	return decimal.RequireFromString(c.MinimumBalance)
}
