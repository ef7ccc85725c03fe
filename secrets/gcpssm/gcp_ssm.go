package gcpssm

import (
	"context"
	"errors"
	"fmt"
	"os"

	sm "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/0xPolygon/token-farm/secrets"
)

const (
	projectIDExtra = "project-id"
	credFileExtra  = "gcp-ssm-cred"
)

// extra holds the gcp-ssm entries of the secrets manager config extra map
type extra struct {
	ProjectID string `mapstructure:"project-id"`
	CredFile  string `mapstructure:"gcp-ssm-cred"`
}

type GcpSsmManager struct {
	// project id in which to store the secrets
	projectID string
	// gcp secrets manager client
	client *sm.Client
	// credential file path
	credFilePath string
	// logger instance
	logger hclog.Logger
	// context used in API calls
	context context.Context
	// deployer name is used to create unique secret id
	name string
}

func SecretsManagerFactory(
	config *secrets.SecretsManagerConfig,
	params *secrets.SecretsManagerParams,
) (secrets.SecretsManager, error) {
	ext, err := decodeExtra(config)
	if err != nil {
		return nil, err
	}

	gcpSsmManager := &GcpSsmManager{
		projectID:    ext.ProjectID,
		credFilePath: ext.CredFile,
		name:         config.Name,
		logger:       params.Logger.Named(string(secrets.GCPSSM)),
	}

	if err := gcpSsmManager.Setup(); err != nil {
		return nil, err
	}

	return gcpSsmManager, nil
}

func decodeExtra(config *secrets.SecretsManagerConfig) (*extra, error) {
	var ext extra
	if err := secrets.DecodeExtra(config.Extra, &ext); err != nil {
		return nil, err
	}

	if ext.ProjectID == "" {
		return nil, fmt.Errorf("no %s variable specified", projectIDExtra)
	}

	if ext.CredFile == "" {
		return nil, fmt.Errorf("no %s variable specified", credFileExtra)
	}

	if config.Name == "" {
		return nil, errors.New("no deployer name specified for GCP secrets manager")
	}

	return &ext, nil
}

// Setup performs secret manager-specific setup
func (gm *GcpSsmManager) Setup() error {
	if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", gm.credFilePath); err != nil {
		return errors.New("could not set GOOGLE_APPLICATION_CREDENTIALS environment variable")
	}

	gm.context = context.Background()

	client, err := sm.NewClient(gm.context)
	if err != nil {
		return fmt.Errorf("could not initialize new GCP secrets manager client %w", err)
	}

	gm.client = client

	return nil
}

// GetSecret gets the latest version of the secret by name
func (gm *GcpSsmManager) GetSecret(name string) ([]byte, error) {
	result, err := gm.client.AccessSecretVersion(gm.context, &smpb.AccessSecretVersionRequest{
		Name: gm.getFullyQualifiedSecretName(name) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
		}

		return nil, fmt.Errorf("could not fetch secret from GCP secret manager: %w", err)
	}

	return result.Payload.Data, nil
}

// SetSecret creates the secret and stores the value as its first version
func (gm *GcpSsmManager) SetSecret(name string, value []byte) error {
	secret, err := gm.client.CreateSecret(gm.context, &smpb.CreateSecretRequest{
		Parent:   fmt.Sprintf("projects/%s", gm.projectID),
		SecretId: gm.getSecretID(name),
		Secret: &smpb.Secret{
			Replication: &smpb.Replication{
				Replication: &smpb.Replication_Automatic_{
					Automatic: &smpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", secrets.ErrSecretAlreadyExists, name)
		}

		return fmt.Errorf("could not set secret, %w", err)
	}

	if _, err := gm.client.AddSecretVersion(gm.context, &smpb.AddSecretVersionRequest{
		Parent:  secret.Name,
		Payload: &smpb.SecretPayload{Data: value},
	}); err != nil {
		return fmt.Errorf("could not store secret, %w", err)
	}

	gm.logger.Debug("secret stored", "name", name)

	return nil
}

// HasSecret checks if the secret is present
func (gm *GcpSsmManager) HasSecret(name string) bool {
	_, err := gm.GetSecret(name)

	return err == nil
}

// RemoveSecret removes the secret with all of its versions
func (gm *GcpSsmManager) RemoveSecret(name string) error {
	if err := gm.client.DeleteSecret(gm.context, &smpb.DeleteSecretRequest{
		Name: gm.getFullyQualifiedSecretName(name),
	}); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", secrets.ErrSecretNotFound, name)
		}

		return fmt.Errorf("could not delete secret %s from GCP secret manager: %w",
			gm.getFullyQualifiedSecretName(name), err)
	}

	return nil
}

// getSecretID is used to format secret id with name_secretName
func (gm *GcpSsmManager) getSecretID(secretName string) string {
	return fmt.Sprintf("%s_%s", gm.name, secretName)
}

// getFullyQualifiedSecretName returns the full path of the secret in the store manager
func (gm *GcpSsmManager) getFullyQualifiedSecretName(secretName string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", gm.projectID, gm.getSecretID(secretName))
}
