package policy

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/berkan-cetinkaya/altcha-access/internal/config"
)

const (
	defaultMaxNumber = 300000
	defaultExpires   = 5 * time.Minute
	defaultAlgorithm = "SHA-256"
)

// Policy describes how challenges for one action are issued and verified.
type Policy struct {
	MaxNumber int64
	Expires   time.Duration
	Algorithm string
	// SecretKey names the config key holding the HMAC key.
	SecretKey string
}

type rawPolicy struct {
	MaxNumber *int64 `yaml:"max_number,omitempty"`
	Expires   string `yaml:"expires,omitempty"`
	Algorithm string `yaml:"algorithm,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

type rawPolicyConfig struct {
	Global  rawPolicy            `yaml:"global"`
	Actions map[string]rawPolicy `yaml:"actions"`
}

type Store struct {
	global  Policy
	actions map[string]Policy
}

// Default is used when no policy file is configured.
func Default() *Store {
	return &Store{global: basePolicy(), actions: map[string]Policy{}}
}

func basePolicy() Policy {
	return Policy{
		MaxNumber: defaultMaxNumber,
		Expires:   defaultExpires,
		Algorithm: defaultAlgorithm,
		SecretKey: config.HMACKeyName,
	}
}

// Parse builds a Store from YAML.
func Parse(data []byte) (*Store, error) {
	var cfg rawPolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse captcha policy config: %w", err)
	}

	base, err := merge(basePolicy(), cfg.Global)
	if err != nil {
		return nil, fmt.Errorf("captcha policy global: %w", err)
	}
	actions := make(map[string]Policy, len(cfg.Actions))
	for name, raw := range cfg.Actions {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("captcha policy action name cannot be empty")
		}
		p, err := merge(base, raw)
		if err != nil {
			return nil, fmt.Errorf("captcha policy action %q: %w", name, err)
		}
		actions[name] = p
	}
	return &Store{global: base, actions: actions}, nil
}

func merge(p Policy, raw rawPolicy) (Policy, error) {
	if raw.MaxNumber != nil {
		if *raw.MaxNumber <= 0 {
			return Policy{}, fmt.Errorf("max_number must be positive")
		}
		p.MaxNumber = *raw.MaxNumber
	}
	if s := strings.TrimSpace(raw.Expires); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid expires %q: %w", s, err)
		}
		if d <= 0 {
			return Policy{}, fmt.Errorf("expires must be positive, got %q", s)
		}
		p.Expires = d
	}
	if s := strings.TrimSpace(raw.Algorithm); s != "" {
		p.Algorithm = strings.ToUpper(s)
	}
	if s := strings.TrimSpace(raw.SecretKey); s != "" {
		p.SecretKey = s
	}
	return p, nil
}

func (ps *Store) PolicyFor(action string) (Policy, bool) {
	if policy, ok := ps.actions[action]; ok {
		return policy, true
	}
	return ps.global, false
}

// Loader returns the latest Store for a file, reloading when the file changes.
type Loader struct {
	path string

	mu      sync.Mutex
	store   *Store
	modTime time.Time
}

func NewLoader(path string) *Loader {
	return &Loader{path: strings.TrimSpace(path)}
}

func (l *Loader) Path() string {
	return l.path
}

// Current returns the cached store, re-reading the file when its mtime moved.
func (l *Loader) Current() (*Store, error) {
	if l.path == "" {
		return Default(), nil
	}

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("could not stat captcha policy config (%s): %w", l.path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil && info.ModTime().Equal(l.modTime) {
		return l.store, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("could not open captcha policy config: %w", err)
	}
	store, err := Parse(data)
	if err != nil {
		return nil, err
	}

	l.store = store
	l.modTime = info.ModTime()
	return l.store, nil
}

// Invalidate drops the cached store so the next Current re-reads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = nil
}
