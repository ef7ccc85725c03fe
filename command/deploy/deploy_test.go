package deploy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/farm"
	"github.com/0xPolygon/token-farm/ledger/ledgertest"
	"github.com/0xPolygon/token-farm/network"
)

func TestDeployParams_ValidateFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		err  error
	}{
		{"defaults", nil, nil},
		{"no confirmations", []string{"--confirmations", "0"}, errNoConfirmations},
		{"zero timeout", []string{"--timeout", "0s"}, errInvalidTimeout},
		{"negative index", []string{"--account-index=-1"}, nil},
		{"invalid account id", []string{"--account-id", "my account"}, nil},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			var p deployParams

			cmd := &cobra.Command{Use: "deploy"}
			setFlags(cmd, &p)

			require.NoError(t, cmd.ParseFlags(c.args))

			err := p.validateFlags(cmd)

			switch {
			case c.err != nil:
				require.ErrorIs(t, err, c.err)
			case c.name == "defaults":
				require.NoError(t, err)
				assert.Nil(t, p.account.Options().Index)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestDeployParams_AccountIndexZero(t *testing.T) {
	t.Parallel()

	var p deployParams

	cmd := &cobra.Command{Use: "deploy"}
	setFlags(cmd, &p)

	require.NoError(t, cmd.ParseFlags([]string{"--account-index", "0"}))
	require.NoError(t, p.account.Parse(cmd))

	opts := p.account.Options()
	require.NotNil(t, opts.Index)
	assert.Equal(t, 0, *opts.Index)
}

func TestDeployResult(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	deployer := farm.NewDeployer(farm.Params{
		Network:   network.Development,
		Config:    network.DefaultConfig(),
		Relayer:   chain,
		Artifacts: ledgertest.NewArtifactStore(),
		Accounts:  accounts.NewResolver(hclog.NewNullLogger(), accounts.LocalDefault(chain, network.Development)),
	})

	res, err := deployer.DeployTokenFarmAndDappToken(context.Background(), farm.DeployOptions{})
	require.NoError(t, err)

	result := newDeployResult(network.Development.String(), res)

	output := result.GetOutput()
	assert.Contains(t, output, "[TOKEN FARM DEPLOYMENT]")
	assert.Contains(t, output, res.TokenFarm.Address().String())
	assert.Contains(t, output, "MockWETH")

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded deployResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded.AllowedTokens, 3)
	assert.Equal(t, res.DappToken.Address().String(), decoded.AllowedTokens[0].Address)
	assert.Equal(t, res.FarmBalance.String(), decoded.FarmBalance)
}
