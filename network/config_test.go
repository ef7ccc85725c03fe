package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"
)

const (
	daiFeedAddr = "0x773616E4d11A78F511299002da57A0a94577F1f4"
	wethAddr    = "0xd0A1E359811322d97991E03f863a0C30C2cF029C"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestContext_Classification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ctx    Context
		local  bool
		forked bool
	}{
		{Development, true, false},
		{GanacheLocal, true, false},
		{MainnetFork, false, true},
		{MainnetForkDev, false, true},
		{Context("kovan"), false, false},
		{Context("mainnet"), false, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.local, c.ctx.IsLocal(), c.ctx)
		assert.Equal(t, c.forked, c.ctx.IsForked(), c.ctx)
		assert.Equal(t, c.local || c.forked, c.ctx.HasDevelopmentAccounts(), c.ctx)
	}
}

func TestReadConfigFile_YAMLWithDotenv(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, ".env", "FARM_TEST_PRIVATE_KEY=0xabc123\n")
	path := writeFile(t, dir, "farm-config.yaml", `
dotenv: .env
default_network: kovan
networks:
  kovan:
    jsonrpc: https://kovan.example.org
    verify: true
    explorer: https://api-kovan.etherscan.io/api
    contracts:
      dai_usd_price_feed: `+daiFeedAddr+`
      weth_token: `+wethAddr+`
wallets:
  from_key: ${FARM_TEST_PRIVATE_KEY}
`)

	t.Cleanup(func() { os.Unsetenv("FARM_TEST_PRIVATE_KEY") })

	config, err := ReadConfigFile(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, path, config.Path())
	assert.Equal(t, "0xabc123", config.FromKey())

	ctx, err := config.ActiveNetwork("")
	require.NoError(t, err)
	assert.Equal(t, Context("kovan"), ctx)

	addr, err := config.ContractAddress(ctx, "dai_usd_price_feed")
	require.NoError(t, err)
	assert.Equal(t, ethgo.HexToAddress(daiFeedAddr), addr)

	verify, err := config.ShouldVerify(ctx)
	require.NoError(t, err)
	assert.True(t, verify)

	// defaults are kept next to the configured networks
	_, err = config.Network(Development)
	require.NoError(t, err)
}

func TestReadConfigFile_JSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "config.json", `{
  "default_network": "development",
  "networks": {
    "rinkeby": {
      "jsonrpc": "https://rinkeby.example.org",
      "contracts": {"weth_token": "`+wethAddr+`"}
    }
  }
}`)

	config, err := ReadConfigFile(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	rpc, err := config.JSONRPCAddr(Context("rinkeby"))
	require.NoError(t, err)
	assert.Equal(t, "https://rinkeby.example.org", rpc)

	rpc, err = config.JSONRPCAddr(Development)
	require.NoError(t, err)
	assert.Equal(t, DefaultJSONRPCAddr, rpc)
}

func TestReadConfigFile_UnsupportedSuffix(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "config.toml", "default_network = 'development'")

	_, err := ReadConfigFile(path)
	require.ErrorContains(t, err, "neither hcl, json, yaml nor yml")
}

func TestConfig_MissingEntries(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	config.Networks["kovan"] = &Network{JSONRPC: "https://kovan.example.org"}

	_, err := config.ContractAddress(Context("kovan"), "eth_usd_price_feed")
	require.ErrorIs(t, err, ErrMissingNetworkConfig)

	_, err = config.ContractAddress(Context("mainnet"), "eth_usd_price_feed")
	require.ErrorIs(t, err, ErrMissingNetworkConfig)

	_, err = config.ActiveNetwork("goerli")
	require.ErrorIs(t, err, ErrMissingNetworkConfig)
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	t.Parallel()

	config := &Config{
		DefaultNetwork: "missing",
		Networks: map[string]*Network{
			"kovan": {
				Verify:    true,
				Contracts: map[string]string{"weth_token": "0x1234"},
			},
		},
	}

	err := config.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "default network 'missing' is not configured")
	assert.Contains(t, msg, "network 'kovan' has no jsonrpc endpoint")
	assert.Contains(t, msg, "requests verification but has no explorer")
	assert.Contains(t, msg, "invalid address '0x1234' for weth_token")
}

func TestLoadConfig_DefaultWhenMissing(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Nil(t, config)
}

func TestReadRawConfigFile_KeepsReferences(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "farm-config.yaml", `
wallets:
  from_key: ${PRIVATE_KEY}
`)

	raw, err := ReadRawConfigFile(path)
	require.NoError(t, err)

	wallets, ok := raw["wallets"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "${PRIVATE_KEY}", wallets["from_key"])
}

func TestIsHexAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, IsHexAddress(daiFeedAddr))
	assert.True(t, IsHexAddress("d0A1E359811322d97991E03f863a0C30C2cF029C"))
	assert.False(t, IsHexAddress("0xd0A1E359811322d97991E03f863a0C30C2cF029"))
	assert.False(t, IsHexAddress("0xzzA1E359811322d97991E03f863a0C30C2cF029C"))
	assert.False(t, IsHexAddress(""))
}
