package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port string `env:"SERVER_PORT" envDefault:"8080"`
	Env  string `env:"ENVIRONMENT" envDefault:"development"`

	// CashbackDelayMS is the withdrawal-to-refund waiting period, in the
	// same unit as operation timestamps.
	CashbackDelayMS int64 `env:"CASHBACK_DELAY_MS" envDefault:"86400000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
