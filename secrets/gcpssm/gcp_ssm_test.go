package gcpssm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/token-farm/secrets"
)

func TestDecodeExtra(t *testing.T) {
	t.Parallel()

	ext, err := decodeExtra(&secrets.SecretsManagerConfig{
		Name: "farm",
		Extra: map[string]interface{}{
			projectIDExtra: "farm-project",
			credFileExtra:  "/etc/gcp.json",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "farm-project", ext.ProjectID)
	assert.Equal(t, "/etc/gcp.json", ext.CredFile)

	_, err = decodeExtra(&secrets.SecretsManagerConfig{
		Name:  "farm",
		Extra: map[string]interface{}{projectIDExtra: "farm-project"},
	})
	require.ErrorContains(t, err, "no gcp-ssm-cred variable specified")

	_, err = decodeExtra(&secrets.SecretsManagerConfig{
		Extra: map[string]interface{}{projectIDExtra: "p", credFileExtra: "c"},
	})
	require.ErrorContains(t, err, "no deployer name")
}
