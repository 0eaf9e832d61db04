package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
)

const defaultVaultMount = "secret"

// VaultSource reads secrets from a KV v2 engine. Each secret keeps its
// value under the "value" field.
type VaultSource struct {
	kv      *vault.KVv2
	timeout time.Duration
	lookup  func(string) (string, bool)
}

// NewVaultSource connects using VAULT_ADDR, VAULT_TOKEN and VAULT_PATH.
func NewVaultSource() (*VaultSource, error) {
	return newVaultSource(os.Getenv("VAULT_ADDR"), os.Getenv("VAULT_TOKEN"), os.Getenv("VAULT_PATH"))
}

func newVaultSource(addr, token, mount string) (*VaultSource, error) {
	if addr == "" || token == "" {
		return nil, fmt.Errorf("vault config requires VAULT_ADDR and VAULT_TOKEN")
	}
	if mount == "" {
		mount = defaultVaultMount
	}

	client, err := vault.NewClient(&vault.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)
	return &VaultSource{
		kv:      client.KVv2(mount),
		timeout: 5 * time.Second,
		lookup:  os.LookupEnv,
	}, nil
}

func (v *VaultSource) Name() string {
	return "vault"
}

// Get lets a non-empty environment variable override Vault. A secret that
// is absent, or has no "value", is reported as ErrNotFound; any other
// failure is returned as is.
func (v *VaultSource) Get(key string) (string, error) {
	if val, ok := v.lookup(key); ok && val != "" {
		return val, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	secret, err := v.kv.Get(ctx, key)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", fmt.Errorf("vault secret %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", key, err)
	}
	val, _ := secret.Data["value"].(string)
	if val == "" {
		return "", fmt.Errorf("vault secret %s has no value: %w", key, ErrNotFound)
	}
	return val, nil
}
