// Package secrets resolves the HMAC key used to hash API keys at rest,
// independent of where that key actually lives: a plain environment
// variable for local/embedded deployments, or AWS Secrets Manager for
// production.
package secrets

import (
	"context"
	"fmt"
)

// Provider resolves the current API key HMAC secret. Implementations may
// cache the value; callers should not assume every call makes a network
// round trip.
type Provider interface {
	APIKeyHMACSecret(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed secret, used for the embedded/self-hosted
// deployment path where the secret comes straight from configuration
// (environment variable or config file) rather than a managed secrets
// store.
type StaticProvider struct {
	secret string
}

// NewStaticProvider wraps a secret already resolved from configuration.
func NewStaticProvider(secret string) (*StaticProvider, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("api key hmac secret must be at least 32 characters, got %d", len(secret))
	}
	return &StaticProvider{secret: secret}, nil
}

func (p *StaticProvider) APIKeyHMACSecret(ctx context.Context) (string, error) {
	return p.secret, nil
}
