// Package secrets resolves credentials that the configuration file leaves
// empty, so passwords never have to live in dedup.yaml.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Keys for the credentials resolved outside the config file.
const (
	KeyGraphPassword = "graph_password"
	KeyGraphURI      = "graph_uri"
)

// ErrNotFound reports that no provider in the chain holds the key.
var ErrNotFound = errors.New("secret not found")

// Provider is one secret backend.
type Provider interface {
	// Get retrieves a secret by key.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Config selects the primary backend. Environment variables are always
// consulted when the primary misses, so a vault outage never blocks a run
// that has the credential exported.
type Config struct {
	// Provider is the primary backend: "env" (default), "vault", "file".
	Provider string
	Vault    *VaultConfig
	File     *FileConfig
	// EnvPrefix for environment variable names (default: "DEDUP_")
	EnvPrefix string
}

// Chain tries providers in order and returns the first non-empty value.
type Chain struct {
	providers []Provider
}

// NewChain builds the provider chain for the configuration.
func NewChain(cfg Config) (*Chain, error) {
	env := NewEnvProvider(cfg.EnvPrefix)
	switch cfg.Provider {
	case "", "env":
		return &Chain{providers: []Provider{env}}, nil
	case "vault":
		p, err := NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("vault provider: %w", err)
		}
		return &Chain{providers: []Provider{p, env}}, nil
	case "file":
		p, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("file provider: %w", err)
		}
		return &Chain{providers: []Provider{p, env}}, nil
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
}

// Get retrieves a secret, trying each provider in chain order.
func (c *Chain) Get(ctx context.Context, key string) (string, error) {
	for _, p := range c.providers {
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			return val, nil
		}
	}
	return "", fmt.Errorf("%s: %w", key, ErrNotFound)
}

// Lookup is Get with a found flag instead of an error.
func (c *Chain) Lookup(ctx context.Context, key string) (string, bool) {
	val, err := c.Get(ctx, key)
	return val, err == nil
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "DEDUP_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%s: %w", envKey, ErrNotFound)
}
