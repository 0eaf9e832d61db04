package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	HMACKeyName    = "ALTCHA_HMAC_KEY"
	DefaultHMACKey = "demo-hmac-key-change-in-production"
)

// Settings holds process settings for the demo server and CLI.
type Settings struct {
	Addr          string        `env:"ALTCHA_ADDR" envDefault:":5000"`
	PolicyPath    string        `env:"ALTCHA_CONFIG"`
	RedisAddr     string        `env:"ALTCHA_REDIS_ADDR"`
	VerifyTimeout time.Duration `env:"ALTCHA_VERIFY_TIMEOUT" envDefault:"6s"`
	ServerURL     string        `env:"ALTCHA_SERVER_URL" envDefault:"http://localhost:5000"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
