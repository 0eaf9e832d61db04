package config

import (
	"fmt"
	"os"
)

// EnvSource loads secrets from environment variables (.env in dev).
type EnvSource struct {
	lookup func(string) (string, bool)
}

func NewEnvSource() *EnvSource {
	return &EnvSource{lookup: os.LookupEnv}
}

func (e *EnvSource) Name() string {
	return "env"
}

func (e *EnvSource) Get(key string) (string, error) {
	val, ok := e.lookup(key)
	if !ok || val == "" {
		return "", fmt.Errorf("env %s: %w", key, ErrNotFound)
	}
	return val, nil
}
