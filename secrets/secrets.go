package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
)

// Define constant names for available secrets
const (
	// AccountKeyPrefix is the prefix of the secret holding a named account's private key
	AccountKeyPrefix = "account-"
)

// Define constant file names for the local StorageManager
const (
	AccountsFolderLocal = "accounts"
	AccountKeyExtLocal  = ".key"
)

// Path is the key of the local secrets manager working directory in the params extra map
const Path = "path"

var (
	// ErrSecretNotFound is returned when the secret isn't present in the storage
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretAlreadyExists is returned when a secret would be overwritten
	ErrSecretAlreadyExists = errors.New("secret already exists")

	errInvalidAccountID = errors.New("account id may only contain letters, digits, '-' and '_'")

	accountIDRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// SecretsManagerType defines the type of the secrets manager
type SecretsManagerType string

const (
	// Local pertains to the local FS [Default]
	Local SecretsManagerType = "local"

	// HashicorpVault pertains to the Hashicorp Vault server
	HashicorpVault SecretsManagerType = "hashicorp-vault"

	// AWSSSM pertains to AWS SSM using Parameter Store
	AWSSSM SecretsManagerType = "aws-ssm"

	// GCPSSM pertains to the Google Cloud Computing secret store manager
	GCPSSM SecretsManagerType = "gcp-ssm"
)

// SecretsManager defines the base public interface that all
// secret manager implementations should have
type SecretsManager interface {
	// Setup performs secret manager-specific setup
	Setup() error

	// GetSecret gets the secret by name
	GetSecret(name string) ([]byte, error)

	// SetSecret sets the secret to a provided value
	SetSecret(name string, value []byte) error

	// HasSecret checks if the secret is present
	HasSecret(name string) bool

	// RemoveSecret removes the secret from storage
	RemoveSecret(name string) error
}

// SecretsManagerParams defines the configuration params for the
// secrets manager
type SecretsManagerParams struct {
	// Local logger object
	Logger hclog.Logger

	// Extra contains additional data needed for the SecretsManager to function
	Extra map[string]interface{}
}

// SecretsManagerConfig is the configuration that gets
// written to a single configuration file
type SecretsManagerConfig struct {
	Token     string                 `json:"token"`      // Access token to the instance
	ServerURL string                 `json:"server_url"` // The URL of the running server
	Type      SecretsManagerType     `json:"type"`       // The type of SecretsManager
	Name      string                 `json:"name"`       // The name of the deployer, used to namespace secrets
	Namespace string                 `json:"namespace"`  // The namespace of the service
	Extra     map[string]interface{} `json:"extra"`      // Any kind of arbitrary data
}

// SecretsManagerFactory is the factory method for secrets managers
type SecretsManagerFactory func(
	config *SecretsManagerConfig,
	params *SecretsManagerParams,
) (SecretsManager, error)

// SupportedServiceManager checks if the passed in service manager type is supported
func SupportedServiceManager(service SecretsManagerType) bool {
	return service == HashicorpVault ||
		service == AWSSSM ||
		service == Local ||
		service == GCPSSM
}

// WriteConfig writes the current configuration to the specified path
func (c *SecretsManagerConfig) WriteConfig(path string) error {
	jsonBytes, _ := json.MarshalIndent(c, "", " ")

	return os.WriteFile(path, jsonBytes, 0600)
}

// ReadConfig reads the SecretsManagerConfig from the specified path
func ReadConfig(path string) (*SecretsManagerConfig, error) {
	configFile, readErr := os.ReadFile(filepath.Clean(path))
	if readErr != nil {
		return nil, fmt.Errorf("unable to read secrets manager config file, %w", readErr)
	}

	config := &SecretsManagerConfig{}

	// Unmarshal the config
	if unmarshalErr := json.Unmarshal(configFile, config); unmarshalErr != nil {
		return nil, fmt.Errorf("unable to unmarshal secrets manager config file, %w", unmarshalErr)
	}

	if !SupportedServiceManager(config.Type) {
		return nil, fmt.Errorf("unsupported secrets manager type '%s'", config.Type)
	}

	return config, nil
}

// ValidateAccountID checks that the id can be used as part of a secret name
func ValidateAccountID(id string) error {
	if !accountIDRegexp.MatchString(id) {
		return fmt.Errorf("invalid account id '%s': %w", id, errInvalidAccountID)
	}

	return nil
}

// AccountKeyName returns the name of the secret holding the private key of the account id
func AccountKeyName(id string) string {
	return AccountKeyPrefix + id
}

// DecodeExtra decodes the extra map of a secrets manager config into the
// struct pointed to by out, matching keys against mapstructure tags.
// Scalars are converted leniently, so a numeric project id still decodes
// into a string field.
func DecodeExtra(extra map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(extra); err != nil {
		return fmt.Errorf("invalid secrets manager extra: %w", err)
	}

	return nil
}
