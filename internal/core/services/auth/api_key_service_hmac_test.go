package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat-core/internal/infrastructure/secrets"
)

func TestHashAPIKeyIsDeterministic(t *testing.T) {
	provider, err := secrets.NewStaticProvider("a-secret-at-least-32-chars-long!")
	require.NoError(t, err)

	svc := &apiKeyService{secretProvider: provider}

	hash1, err := svc.hashAPIKey(context.Background(), "bk_live_deadbeef")
	require.NoError(t, err)
	hash2, err := svc.hashAPIKey(context.Background(), "bk_live_deadbeef")
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)
	assert.Len(t, hash1, 64) // hex-encoded SHA-256 digest
}

func TestHashAPIKeyDiffersByKey(t *testing.T) {
	provider, err := secrets.NewStaticProvider("a-secret-at-least-32-chars-long!")
	require.NoError(t, err)

	svc := &apiKeyService{secretProvider: provider}

	hash1, err := svc.hashAPIKey(context.Background(), "bk_live_deadbeef")
	require.NoError(t, err)
	hash2, err := svc.hashAPIKey(context.Background(), "bk_live_feedface")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestHashAPIKeyDiffersBySecret(t *testing.T) {
	providerA, err := secrets.NewStaticProvider("a-secret-at-least-32-chars-long!")
	require.NoError(t, err)
	providerB, err := secrets.NewStaticProvider("a-different-secret-32-chars-long")
	require.NoError(t, err)

	svcA := &apiKeyService{secretProvider: providerA}
	svcB := &apiKeyService{secretProvider: providerB}

	hashA, err := svcA.hashAPIKey(context.Background(), "bk_live_deadbeef")
	require.NoError(t, err)
	hashB, err := svcB.hashAPIKey(context.Background(), "bk_live_deadbeef")
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB, "the same key must hash differently under different secrets, or the key_hash column alone would be enough to confirm a guess")
}

func TestHashAPIKeyPropagatesProviderError(t *testing.T) {
	svc := &apiKeyService{secretProvider: failingSecretProvider{}}

	_, err := svc.hashAPIKey(context.Background(), "bk_live_deadbeef")
	assert.Error(t, err)
}

type failingSecretProvider struct{}

func (failingSecretProvider) APIKeyHMACSecret(ctx context.Context) (string, error) {
	return "", assert.AnError
}
