package hashicorpvault

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	vault "github.com/hashicorp/vault/api"

	"github.com/0xPolygon/token-farm/secrets"
)

// logicalClient is the part of the Vault logical backend used for KV-2 access
type logicalClient interface {
	Read(path string) (*vault.Secret, error)
	Write(path string, data map[string]interface{}) (*vault.Secret, error)
	Delete(path string) (*vault.Secret, error)
}

// VaultSecretsManager is a SecretsManager that
// stores secrets on a Hashicorp Vault instance
type VaultSecretsManager struct {
	// Logger object
	logger hclog.Logger

	// Token used for Vault instance authentication
	token string

	// The Server URL of the Vault instance
	serverURL string

	// The namespace under which the secrets are stored
	namespace string

	// The base path to store the secrets in the KV-2 Vault storage
	basePath string

	logical logicalClient
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	if config.Token == "" {
		return nil, errors.New("no token specified for Vault secrets manager")
	}

	if config.ServerURL == "" {
		return nil, errors.New("no server URL specified for Vault secrets manager")
	}

	if config.Name == "" {
		return nil, errors.New("no deployer name specified for Vault secrets manager")
	}

	vaultManager := &VaultSecretsManager{
		logger:    params.Logger.Named(string(secrets.HashicorpVault)),
		token:     config.Token,
		serverURL: config.ServerURL,
		namespace: config.Namespace,
		basePath:  fmt.Sprintf("secret/data/%s", config.Name),
	}

	if err := vaultManager.Setup(); err != nil {
		return nil, err
	}

	return vaultManager, nil
}

// Setup sets up the Hashicorp Vault secrets manager
func (v *VaultSecretsManager) Setup() error {
	config := vault.DefaultConfig()
	config.Address = v.serverURL

	client, err := vault.NewClient(config)
	if err != nil {
		return fmt.Errorf("unable to initialize Vault client: %w", err)
	}

	client.SetToken(v.token)
	client.SetNamespace(v.namespace)

	v.logical = client.Logical()

	return nil
}

func (v *VaultSecretsManager) constructSecretPath(name string) string {
	return fmt.Sprintf("%s/%s", v.basePath, name)
}

// GetSecret fetches a secret from the Hashicorp Vault server
func (v *VaultSecretsManager) GetSecret(name string) ([]byte, error) {
	secret, err := v.logical.Read(v.constructSecretPath(name))
	if err != nil {
		return nil, fmt.Errorf("unable to read secret from Vault, %w", err)
	}

	if secret == nil {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
	}

	// KV-2 nests the stored key/value pairs under "data"
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
	}

	value, ok := data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
	}

	stringVal, ok := value.(string)
	if !ok {
		return nil, errors.New("invalid type assertion for secret value")
	}

	return []byte(stringVal), nil
}

// SetSecret saves a secret to the Hashicorp Vault server. Existing account
// keys are never overwritten.
func (v *VaultSecretsManager) SetSecret(name string, value []byte) error {
	_, err := v.GetSecret(name)
	if err == nil {
		return fmt.Errorf("%w: %s", secrets.ErrSecretAlreadyExists, name)
	} else if !errors.Is(err, secrets.ErrSecretNotFound) {
		return err
	}

	_, err = v.logical.Write(v.constructSecretPath(name), map[string]interface{}{
		"data": map[string]string{name: string(value)},
	})
	if err != nil {
		return fmt.Errorf("unable to store secret (%s), %w", name, err)
	}

	v.logger.Debug("secret stored", "name", name)

	return nil
}

// HasSecret checks if the secret is present on the Hashicorp Vault server
func (v *VaultSecretsManager) HasSecret(name string) bool {
	_, err := v.GetSecret(name)

	return err == nil
}

// RemoveSecret removes a secret from the Hashicorp Vault server
func (v *VaultSecretsManager) RemoveSecret(name string) error {
	if _, err := v.GetSecret(name); err != nil {
		return err
	}

	if _, err := v.logical.Delete(v.constructSecretPath(name)); err != nil {
		return fmt.Errorf("unable to delete secret (%s), %w", name, err)
	}

	return nil
}
