package helper

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/token-farm/secrets"
	"github.com/0xPolygon/token-farm/secrets/awsssm"
	"github.com/0xPolygon/token-farm/secrets/gcpssm"
	"github.com/0xPolygon/token-farm/secrets/hashicorpvault"
	"github.com/0xPolygon/token-farm/secrets/local"
)

// DefaultDataDir is the working directory of the local secrets manager
const DefaultDataDir = "./.farm-secrets"

var (
	ErrInvalidParams   = errors.New("no config file or data directory passed in")
	ErrUnsupportedType = errors.New("unsupported secrets manager")
)

// SetupLocalSecretsManager is a helper method for boilerplate local secrets manager setup
func SetupLocalSecretsManager(logger hclog.Logger, dataDir string) (secrets.SecretsManager, error) {
	return local.SecretsManagerFactory(
		nil, // Local secrets manager doesn't require a config
		&secrets.SecretsManagerParams{
			Logger: logger,
			Extra: map[string]interface{}{
				secrets.Path: dataDir,
			},
		},
	)
}

// InitCloudSecretsManager returns the cloud secrets manager from the provided config
func InitCloudSecretsManager(
	logger hclog.Logger,
	secretsConfig *secrets.SecretsManagerConfig,
) (secrets.SecretsManager, error) {
	params := &secrets.SecretsManagerParams{Logger: logger}

	switch secretsConfig.Type {
	case secrets.HashicorpVault:
		return hashicorpvault.SecretsManagerFactory(secretsConfig, params)
	case secrets.AWSSSM:
		return awsssm.SecretsManagerFactory(secretsConfig, params)
	case secrets.GCPSSM:
		return gcpssm.SecretsManagerFactory(secretsConfig, params)
	case secrets.Local:
		var ext struct {
			Path string `mapstructure:"path"`
		}

		if err := secrets.DecodeExtra(secretsConfig.Extra, &ext); err != nil {
			return nil, err
		}

		if ext.Path == "" {
			ext.Path = DefaultDataDir
		}

		return SetupLocalSecretsManager(logger, ext.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, secretsConfig.Type)
	}
}

// GetSecretsManager resolves the secrets manager from a config file path, or
// the local one rooted at dataPath when no config is given
func GetSecretsManager(logger hclog.Logger, dataPath, configPath string) (secrets.SecretsManager, error) {
	if configPath != "" {
		secretsConfig, err := secrets.ReadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid secrets configuration: %w", err)
		}

		return InitCloudSecretsManager(logger, secretsConfig)
	}

	if dataPath == "" {
		return nil, ErrInvalidParams
	}

	return SetupLocalSecretsManager(logger, dataPath)
}
