package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

type mapSource map[string]string

func (m mapSource) Name() string { return "map" }

func (m mapSource) Get(key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func TestManagerDelegatesToSource(t *testing.T) {
	mgr := NewManager(mapSource{HMACKeyName: "secret"})
	if got, err := mgr.Get(HMACKeyName); err != nil || got != "secret" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := mgr.Get("MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(MISSING) = %v", err)
	}
	if mgr.SourceName() != "map" {
		t.Fatalf("SourceName = %q", mgr.SourceName())
	}
}

func TestEnvSourceReportsNotFound(t *testing.T) {
	src := &EnvSource{lookup: func(key string) (string, bool) {
		if key == "SET" {
			return "v", true
		}
		if key == "EMPTY" {
			return "", true
		}
		return "", false
	}}
	if v, err := src.Get("SET"); err != nil || v != "v" {
		t.Fatalf("Get(SET) = %q, %v", v, err)
	}
	for _, key := range []string{"EMPTY", "UNSET"} {
		if _, err := src.Get(key); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get(%s) = %v, want ErrNotFound", key, err)
		}
	}
}

func newTestVault(t *testing.T, handler http.HandlerFunc) *VaultSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	v, err := newVaultSource(srv.URL, "test-token", "")
	if err != nil {
		t.Fatalf("newVaultSource: %v", err)
	}
	v.lookup = func(string) (string, bool) { return "", false }
	return v
}

func TestVaultSourceReadsValue(t *testing.T) {
	v := newTestVault(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/ALTCHA_HMAC_KEY" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			t.Errorf("missing vault token header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"value":"s3cret"},"metadata":{"created_time":"2024-01-01T00:00:00Z","deletion_time":"","destroyed":false,"version":1}}}`))
	})
	got, err := v.Get(HMACKeyName)
	if err != nil || got != "s3cret" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestVaultSourceMissingSecretIsNotFound(t *testing.T) {
	v := newTestVault(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	})
	if _, err := v.Get(HMACKeyName); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestVaultSourceFailureIsNotNotFound(t *testing.T) {
	v := newTestVault(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	})
	_, err := v.Get(HMACKeyName)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want a non-ErrNotFound failure", err)
	}
}

func TestVaultSourceEnvOverride(t *testing.T) {
	v := newTestVault(t, func(http.ResponseWriter, *http.Request) {
		t.Error("vault must not be queried when the env override is set")
	})
	v.lookup = func(key string) (string, bool) { return "from-env", key == HMACKeyName }
	if got, err := v.Get(HMACKeyName); err != nil || got != "from-env" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestNewVaultSourceRequiresAddress(t *testing.T) {
	if _, err := newVaultSource("", "token", ""); err == nil {
		t.Fatal("expected error without address")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	for _, key := range []string{"ALTCHA_ADDR", "ALTCHA_VERIFY_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Addr != ":5000" || s.VerifyTimeout != 6*time.Second {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("ALTCHA_ADDR", ":9000")
	t.Setenv("ALTCHA_REDIS_ADDR", "localhost:6379")
	t.Setenv("ALTCHA_VERIFY_TIMEOUT", "2s")
	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Addr != ":9000" || s.RedisAddr != "localhost:6379" || s.VerifyTimeout != 2*time.Second {
		t.Fatalf("unexpected settings: %+v", s)
	}
}

func TestNewSourceUnknown(t *testing.T) {
	if _, err := newSource("consul"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
