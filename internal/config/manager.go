package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound reports that a source has no value for a key. Sources wrap it;
// any other error means the source itself failed.
var ErrNotFound = errors.New("not set")

// Source describes a backend that can provide secrets such as the HMAC key.
type Source interface {
	Get(key string) (string, error)
	Name() string
}

// Manager proxies lookups to a single Source selected via CONFIG_PROVIDER.
type Manager struct {
	source Source
}

func NewManager(source Source) *Manager {
	return &Manager{source: source}
}

func (m *Manager) Get(key string) (string, error) {
	return m.source.Get(key)
}

func (m *Manager) SourceName() string {
	return m.source.Name()
}

var (
	defaultManager *Manager
	managerOnce    sync.Once
	managerErr     error
)

// Default returns the process-wide manager.
func Default() (*Manager, error) {
	managerOnce.Do(func() {
		sourceName := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_PROVIDER")))
		if sourceName == "" {
			sourceName = "env"
		}

		source, err := newSource(sourceName)
		if err != nil {
			managerErr = err
			return
		}
		defaultManager = NewManager(source)
	})

	return defaultManager, managerErr
}

// Get returns the value for key from the default manager.
func Get(key string) (string, error) {
	mgr, err := Default()
	if err != nil {
		return "", err
	}
	return mgr.Get(key)
}

func newSource(name string) (Source, error) {
	switch name {
	case "env":
		return NewEnvSource(), nil
	case "vault":
		return NewVaultSource()
	default:
		return nil, fmt.Errorf("unknown config provider: %s", name)
	}
}
