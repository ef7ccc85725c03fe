package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/token-farm/helper/common"
	"github.com/0xPolygon/token-farm/secrets"
)

// LocalSecretsManager is a SecretsManager that
// stores secrets locally on disk
type LocalSecretsManager struct {
	// Logger object
	logger hclog.Logger

	// Path to the base working directory
	path string

	// Guards reads and writes of the key files
	lock sync.RWMutex
}

// SecretsManagerFactory implements the factory method
func SecretsManagerFactory(
	_ *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	// Set up the base object
	localManager := &LocalSecretsManager{
		logger: params.Logger.Named(string(secrets.Local)),
	}

	var ext struct {
		Path string `mapstructure:"path"`
	}

	if err := secrets.DecodeExtra(params.Extra, &ext); err != nil {
		return nil, err
	}

	if ext.Path == "" {
		return nil, errors.New("no path specified for local secrets manager")
	}

	localManager.path = ext.Path

	if err := localManager.Setup(); err != nil {
		return nil, err
	}

	return localManager, nil
}

// Setup creates the accounts directory under the working directory
func (l *LocalSecretsManager) Setup() error {
	l.lock.Lock()
	defer l.lock.Unlock()

	return common.SetupDataDir(l.path, []string{secrets.AccountsFolderLocal})
}

// secretPath maps account-<id> to baseDir/accounts/<id>.key
func (l *LocalSecretsManager) secretPath(name string) (string, error) {
	id := strings.TrimPrefix(name, secrets.AccountKeyPrefix)
	if id == name {
		return "", secrets.ErrSecretNotFound
	}

	if err := secrets.ValidateAccountID(id); err != nil {
		return "", err
	}

	return filepath.Join(l.path, secrets.AccountsFolderLocal, id+secrets.AccountKeyExtLocal), nil
}

// GetSecret gets the local SecretsManager's secret from disk
func (l *LocalSecretsManager) GetSecret(name string) ([]byte, error) {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return nil, err
	}

	l.lock.RLock()
	defer l.lock.RUnlock()

	// Read the secret from disk
	secret, err := os.ReadFile(secretPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
		}

		return nil, fmt.Errorf(
			"unable to read secret from disk (%s), %w",
			secretPath,
			err,
		)
	}

	return secret, nil
}

// SetSecret saves the local SecretsManager's secret to disk
func (l *LocalSecretsManager) SetSecret(name string, value []byte) error {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	// Checks for existing secret
	if _, err := os.Stat(secretPath); err == nil {
		return fmt.Errorf("%w: %s", secrets.ErrSecretAlreadyExists, secretPath)
	}

	// Write the secret to disk
	if err := os.WriteFile(secretPath, value, 0600); err != nil {
		return fmt.Errorf(
			"unable to write secret to disk (%s), %w",
			secretPath,
			err,
		)
	}

	l.logger.Debug("secret stored", "name", name)

	return nil
}

// HasSecret checks if the secret is present on disk
func (l *LocalSecretsManager) HasSecret(name string) bool {
	_, err := l.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the local SecretsManager's secret from disk
func (l *LocalSecretsManager) RemoveSecret(name string) error {
	secretPath, err := l.secretPath(name)
	if err != nil {
		return err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if removeErr := os.Remove(secretPath); removeErr != nil {
		if errors.Is(removeErr, os.ErrNotExist) {
			return secrets.ErrSecretNotFound
		}

		return fmt.Errorf("unable to remove secret, %w", removeErr)
	}

	return nil
}
