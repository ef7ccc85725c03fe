package local

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/token-farm/secrets"
)

func newLocalManager(t *testing.T) secrets.SecretsManager {
	t.Helper()

	manager, err := SecretsManagerFactory(nil, &secrets.SecretsManagerParams{
		Logger: hclog.NewNullLogger(),
		Extra:  map[string]interface{}{secrets.Path: t.TempDir()},
	})
	require.NoError(t, err)

	return manager
}

func TestLocalSecretsManager_AccountKeys(t *testing.T) {
	t.Parallel()

	manager := newLocalManager(t)
	name := secrets.AccountKeyName("deployer")

	assert.False(t, manager.HasSecret(name))

	_, err := manager.GetSecret(name)
	require.ErrorIs(t, err, secrets.ErrSecretNotFound)

	require.NoError(t, manager.SetSecret(name, []byte("0x1234")))
	require.ErrorIs(t, manager.SetSecret(name, []byte("0x5678")), secrets.ErrSecretAlreadyExists)

	value, err := manager.GetSecret(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("0x1234"), value)

	require.NoError(t, manager.RemoveSecret(name))
	require.ErrorIs(t, manager.RemoveSecret(name), secrets.ErrSecretNotFound)
}

func TestLocalSecretsManager_RejectsUnknownNames(t *testing.T) {
	t.Parallel()

	manager := newLocalManager(t)

	_, err := manager.GetSecret("validator-key")
	require.ErrorIs(t, err, secrets.ErrSecretNotFound)

	require.Error(t, manager.SetSecret(secrets.AccountKeyName("../../etc"), []byte("x")))
}

func TestSecretsManagerFactory_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := SecretsManagerFactory(nil, &secrets.SecretsManagerParams{Logger: hclog.NewNullLogger()})
	require.ErrorContains(t, err, "no path specified")
}

func TestSecretsManagerFactory_InvalidPathType(t *testing.T) {
	t.Parallel()

	_, err := SecretsManagerFactory(nil, &secrets.SecretsManagerParams{
		Logger: hclog.NewNullLogger(),
		Extra:  map[string]interface{}{secrets.Path: map[string]int{"dir": 1}},
	})
	require.ErrorContains(t, err, "invalid secrets manager extra")
}
