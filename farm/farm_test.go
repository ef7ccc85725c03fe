package farm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/deployments"
	"github.com/0xPolygon/token-farm/ledger"
	"github.com/0xPolygon/token-farm/ledger/ledgertest"
	"github.com/0xPolygon/token-farm/network"
)

type verification struct {
	contract string
	address  ethgo.Address
	args     []interface{}
}

type recordingVerifier struct {
	calls []verification
	err   error
}

func (v *recordingVerifier) Verify(_ context.Context, artifact *contracts.Artifact,
	address ethgo.Address, args ...interface{}) error {
	v.calls = append(v.calls, verification{contract: artifact.ContractName, address: address, args: args})

	return v.err
}

type countingSyncer struct {
	syncs int
}

func (s *countingSyncer) Sync() error {
	s.syncs++

	return nil
}

func newLocalDeployer(t *testing.T, chain *ledgertest.Chain, syncer *countingSyncer) *Deployer {
	t.Helper()

	params := Params{
		Logger:    hclog.NewNullLogger(),
		Network:   network.Development,
		Config:    network.DefaultConfig(),
		Relayer:   chain,
		Artifacts: ledgertest.NewArtifactStore(),
		Accounts:  accounts.NewResolver(hclog.NewNullLogger(), accounts.LocalDefault(chain, network.Development)),
		BuildDir:  t.TempDir(),
	}

	if syncer != nil {
		params.Frontend = syncer
	}

	return NewDeployer(params)
}

func allowedTokens(t *testing.T, tokenFarm *ledger.Contract) []ethgo.Address {
	t.Helper()

	res := []ethgo.Address{}

	for i := int64(0); ; i++ {
		addr, err := tokenFarm.CallAddress("allowedTokens", big.NewInt(i))
		if errors.Is(err, ledger.ErrTransactionRejected) {
			return res
		}

		require.NoError(t, err)

		res = append(res, addr)
	}
}

func TestDeployTokenFarmAndDappToken_Local(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	deployer := newLocalDeployer(t, chain, nil)

	result, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.NoError(t, err)

	assert.Equal(t, chain.Account(0).Address(), result.Account.Address())
	assert.NotEqual(t, ethgo.ZeroAddress, result.DappToken.Address())
	assert.NotEqual(t, ethgo.ZeroAddress, result.TokenFarm.Address())
	assert.NotEqual(t, result.DappToken.Address(), result.TokenFarm.Address())
	assert.False(t, result.Verified)
	assert.False(t, result.Recorded)
	assert.False(t, result.FrontendSync)

	// the farm holds the supply minus the kept balance
	supply, err := result.DappToken.CallBigInt("totalSupply")
	require.NoError(t, err)

	farmBalance, err := result.DappToken.CallBigInt("balanceOf", result.TokenFarm.Address())
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).Sub(supply, KeptBalance).Cmp(farmBalance))
	assert.Equal(t, 0, farmBalance.Cmp(result.FarmBalance))

	// exactly the three tokens are allowed, each bound to its feed
	require.Len(t, result.AllowedTokens, 3)

	expected := []ethgo.Address{}
	for _, entry := range result.AllowedTokens {
		expected = append(expected, entry.Token.Address())
	}

	assert.Equal(t, expected, allowedTokens(t, result.TokenFarm))

	dai := result.AllowedTokens[0].PriceFeed
	eth := result.AllowedTokens[2].PriceFeed

	assert.Equal(t, result.DappToken.Address(), result.AllowedTokens[0].Token.Address())
	assert.Equal(t, contracts.MockDAI.Name, result.AllowedTokens[1].Token.Name())
	assert.Equal(t, contracts.MockWETH.Name, result.AllowedTokens[2].Token.Name())
	assert.Same(t, dai, result.AllowedTokens[1].PriceFeed)

	for _, entry := range result.AllowedTokens {
		feed, err := result.TokenFarm.CallAddress("tokenPriceFeedMapping", entry.Token.Address())
		require.NoError(t, err)
		assert.Equal(t, entry.PriceFeed.Address(), feed)
	}

	assert.NotEqual(t, dai.Address(), eth.Address())

	// token, farm, weth, fau and two price feeds
	assert.Equal(t, 6, chain.TotalDeployments())
	assert.Equal(t, 2, chain.Deployments(contracts.MockV3Aggregator.Name))
}

func TestDeployTokenFarmAndDappToken_RerunDeploysNewInstances(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	deployer := newLocalDeployer(t, chain, nil)

	first, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.NoError(t, err)

	second, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.TokenFarm.Address(), second.TokenFarm.Address())
	assert.NotEqual(t, first.DappToken.Address(), second.DappToken.Address())
	assert.Equal(t, 2, chain.Deployments(contracts.TokenFarm.Name))
}

func TestDeployTokenFarmAndDappToken_UpdateFrontend(t *testing.T) {
	t.Parallel()

	syncer := &countingSyncer{}
	deployer := newLocalDeployer(t, ledgertest.NewChain(), syncer)

	result, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{UpdateFrontend: true})
	require.NoError(t, err)
	assert.True(t, result.FrontendSync)
	assert.Equal(t, 1, syncer.syncs)

	noFrontend := newLocalDeployer(t, ledgertest.NewChain(), nil)

	_, err = noFrontend.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{UpdateFrontend: true})
	require.ErrorContains(t, err, "no frontend")
}

func TestDeployTokenFarmAndDappToken_NoAccount(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	deployer := NewDeployer(Params{
		Network:   network.Context("kovan"),
		Config:    network.DefaultConfig(),
		Relayer:   chain,
		Artifacts: ledgertest.NewArtifactStore(),
		Accounts: accounts.NewResolver(hclog.NewNullLogger(),
			accounts.LocalDefault(chain, network.Context("kovan")),
			accounts.FromKey(""),
		),
	})

	_, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.ErrorIs(t, err, accounts.ErrNoAccount)
	assert.Equal(t, 0, chain.TotalDeployments())
}

// liveSetup deploys the auxiliary contracts up front and configures their
// addresses the way a live network configuration does
func liveSetup(t *testing.T, chain *ledgertest.Chain, verifyFlag bool) *network.Config {
	t.Helper()

	ctx := context.Background()
	owner := chain.Account(0)
	addrs := map[string]string{}

	for name, typ := range map[string]*contracts.ContractType{
		contracts.WethToken: contracts.MockWETH,
		contracts.FauToken:  contracts.MockDAI,
	} {
		contract, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(typ), owner)
		require.NoError(t, err)

		addrs[name] = contract.Address().String()
	}

	for _, name := range []string{contracts.DaiUsdPriceFeed, contracts.EthUsdPriceFeed} {
		feed, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(contracts.MockV3Aggregator), owner,
			uint8(8), big.NewInt(100_000_000))
		require.NoError(t, err)

		addrs[name] = feed.Address().String()
	}

	config := network.DefaultConfig()
	config.Networks["kovan"] = &network.Network{
		JSONRPC:   "https://kovan.example",
		Verify:    verifyFlag,
		Explorer:  "https://api-kovan.etherscan.io/api",
		Contracts: addrs,
	}

	return config
}

func TestDeployTokenFarmAndDappToken_LiveNetwork(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	config := liveSetup(t, chain, true)
	predeployed := chain.TotalDeployments()

	index := 2
	verifier := &recordingVerifier{}
	buildDir := t.TempDir()

	deployer := NewDeployer(Params{
		Logger:    hclog.NewNullLogger(),
		Network:   network.Context("kovan"),
		Config:    config,
		Relayer:   chain,
		Artifacts: ledgertest.NewArtifactStore(),
		Accounts:  accounts.NewResolver(hclog.NewNullLogger(), accounts.FromIndex(chain, &index)),
		BuildDir:  buildDir,
		Verifier:  verifier,
	})

	result, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.NoError(t, err)

	// only the token and the farm are deployed, auxiliaries are bound
	assert.Equal(t, predeployed+2, chain.TotalDeployments())
	assert.Equal(t, config.Networks["kovan"].Contracts[contracts.FauToken],
		result.AllowedTokens[1].Token.Address().String())

	owner, err := result.TokenFarm.CallAddress("owner")
	require.NoError(t, err)
	assert.Equal(t, chain.Account(index).Address(), owner)

	assert.True(t, result.Verified)
	require.Len(t, verifier.calls, 1)
	assert.Equal(t, contracts.TokenFarm.Name, verifier.calls[0].contract)
	assert.Equal(t, result.TokenFarm.Address(), verifier.calls[0].address)
	assert.Equal(t, []interface{}{result.DappToken.Address()}, verifier.calls[0].args)

	assert.True(t, result.Recorded)

	m, err := deployments.Load(buildDir)
	require.NoError(t, err)

	latest, ok := m.Latest(ledgertest.ChainID, contracts.TokenFarm.Name)
	require.True(t, ok)
	assert.Equal(t, result.TokenFarm.Address(), latest)
}

func TestDeployTokenFarmAndDappToken_LiveNetworkFailures(t *testing.T) {
	t.Parallel()

	index := 0

	newDeployer := func(chain *ledgertest.Chain, config *network.Config, verifier *recordingVerifier) *Deployer {
		params := Params{
			Network:   network.Context("kovan"),
			Config:    config,
			Relayer:   chain,
			Artifacts: ledgertest.NewArtifactStore(),
			Accounts:  accounts.NewResolver(hclog.NewNullLogger(), accounts.FromIndex(chain, &index)),
			BuildDir:  t.TempDir(),
		}

		if verifier != nil {
			params.Verifier = verifier
		}

		return NewDeployer(params)
	}

	t.Run("missing verifier", func(t *testing.T) {
		t.Parallel()

		chain := ledgertest.NewChain()

		_, err := newDeployer(chain, liveSetup(t, chain, true), nil).
			DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
		require.ErrorIs(t, err, errNoVerifier)
	})

	t.Run("verification failure", func(t *testing.T) {
		t.Parallel()

		chain := ledgertest.NewChain()
		verifier := &recordingVerifier{err: errors.New("explorer down")}

		_, err := newDeployer(chain, liveSetup(t, chain, true), verifier).
			DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
		require.ErrorContains(t, err, "explorer down")
	})

	t.Run("missing contract address", func(t *testing.T) {
		t.Parallel()

		chain := ledgertest.NewChain()
		config := liveSetup(t, chain, false)
		delete(config.Networks["kovan"].Contracts, contracts.EthUsdPriceFeed)

		_, err := newDeployer(chain, config, nil).
			DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
		require.ErrorIs(t, err, network.ErrMissingNetworkConfig)
	})
}

func TestRegistrar_NonOwnerRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := ledgertest.NewChain()
	owner := chain.Account(0)

	dappToken, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(contracts.DappToken), owner)
	require.NoError(t, err)

	tokenFarm, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(contracts.TokenFarm), owner, dappToken.Address())
	require.NoError(t, err)

	feed, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(contracts.MockV3Aggregator), owner,
		uint8(8), big.NewInt(1))
	require.NoError(t, err)

	registrar := NewRegistrar(hclog.NewNullLogger(), 0)
	allowed := []AllowedToken{{Token: dappToken, PriceFeed: feed}}

	err = registrar.AddAllowedTokens(ctx, tokenFarm, allowed, chain.Account(1))
	require.ErrorIs(t, err, ledger.ErrTransactionRejected)
	assert.ErrorContains(t, err, addAllowedTokenMethod)
	assert.Empty(t, allowedTokens(t, tokenFarm))

	// the owner can allow the token but a stranger cannot rebind its feed
	require.NoError(t, registrar.AddAllowedTokens(ctx, tokenFarm, allowed, owner))

	tx, err := tokenFarm.Transact(setPriceFeedContractMethod, chain.Account(1), dappToken.Address(), ethgo.Address{0x9})
	require.NoError(t, err)

	_, err = tx.Wait(ctx, 1)

	var rejected *ledger.TransactionRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Ownable: caller is not the owner", rejected.Reason)

	mapped, err := tokenFarm.CallAddress("tokenPriceFeedMapping", dappToken.Address())
	require.NoError(t, err)
	assert.Equal(t, feed.Address(), mapped)
}

func TestFundWithLink(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := ledgertest.NewChain()
	deployer := newLocalDeployer(t, chain, nil)
	target := ethgo.Address{0x77}

	mocks, err := deployer.DeployMocks(ctx)
	require.NoError(t, err)

	receipt, err := deployer.FundWithLink(ctx, target, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)

	// the link token of the mock suite pays
	balance, err := mocks[contracts.LinkTokenName].CallBigInt("balanceOf", target)
	require.NoError(t, err)
	assert.Equal(t, 0, DefaultLinkAmount.Cmp(balance))
	assert.Equal(t, 1, chain.Deployments(contracts.LinkToken.Name))
}

func TestFundWithLink_DeploysMissingLinkToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := ledgertest.NewChain()
	deployer := newLocalDeployer(t, chain, nil)
	target := ethgo.Address{0x79}

	_, err := deployer.FundWithLink(ctx, target, nil)
	require.NoError(t, err)

	_, err = deployer.FundWithLink(ctx, target, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, chain.Deployments(contracts.LinkToken.Name))
}

func TestDeployer_ReusesMocksAcrossOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := ledgertest.NewChain()
	deployer := newLocalDeployer(t, chain, nil)

	mocks, err := deployer.DeployMocks(ctx)
	require.NoError(t, err)

	first, err := deployer.DeployTokenFarmAndDappToken(ctx, DeployOptions{})
	require.NoError(t, err)

	second, err := deployer.DeployTokenFarmAndDappToken(ctx, DeployOptions{})
	require.NoError(t, err)

	for _, result := range []*Result{first, second} {
		assert.Same(t, mocks[contracts.FauToken], result.AllowedTokens[1].Token)
		assert.Same(t, mocks[contracts.WethToken], result.AllowedTokens[2].Token)
		assert.Same(t, mocks[contracts.DaiUsdPriceFeed], result.AllowedTokens[0].PriceFeed)
		assert.Same(t, mocks[contracts.EthUsdPriceFeed], result.AllowedTokens[2].PriceFeed)
	}

	// one suite, two token and farm pairs
	assert.Equal(t, 1, chain.Deployments(contracts.MockV3Aggregator.Name))
	assert.Equal(t, 1, chain.Deployments(contracts.MockWETH.Name))
	assert.Equal(t, 1, chain.Deployments(contracts.MockDAI.Name))
	assert.Equal(t, 2, chain.Deployments(contracts.TokenFarm.Name))
	assert.Equal(t, 2, chain.Deployments(contracts.DappToken.Name))
}

func TestDeployTokenFarmAndDappToken_Confirmations(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	deployer := NewDeployer(Params{
		Network:       network.Development,
		Config:        network.DefaultConfig(),
		Relayer:       chain,
		Artifacts:     ledgertest.NewArtifactStore(),
		Accounts:      accounts.NewResolver(hclog.NewNullLogger(), accounts.LocalDefault(chain, network.Development)),
		Confirmations: 3,
	})

	result, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), chain.Awaited(result.DappToken.DeploymentReceipt().TransactionHash))
	assert.Equal(t, uint64(3), chain.Awaited(result.TokenFarm.DeploymentReceipt().TransactionHash))

	for _, entry := range result.AllowedTokens[1:] {
		assert.Equal(t, uint64(3), chain.Awaited(entry.Token.DeploymentReceipt().TransactionHash))
	}
}

func TestDeployTokenFarmAndDappToken_SupplyBelowKeptBalance(t *testing.T) {
	t.Parallel()

	chain := ledgertest.NewChain()
	chain.Supplies = map[string]*big.Int{contracts.DappToken.Name: ethgo.Ether(99)}

	deployer := newLocalDeployer(t, chain, nil)

	_, err := deployer.DeployTokenFarmAndDappToken(context.Background(), DeployOptions{})
	require.ErrorContains(t, err, "below the kept balance")

	// the run stops before the transfer and the auxiliary contracts
	assert.Equal(t, 2, chain.TotalDeployments())
}

func TestFundWithLink_Balance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	chain := ledgertest.NewChain()
	owner := chain.Account(0)

	link, err := ledger.Deploy(ctx, chain, ledgertest.Artifact(contracts.LinkToken), owner)
	require.NoError(t, err)

	config := network.DefaultConfig()
	config.Networks["kovan"] = &network.Network{
		JSONRPC:   "https://kovan.example",
		Contracts: map[string]string{contracts.LinkTokenName: link.Address().String()},
	}

	index := 0
	deployer := NewDeployer(Params{
		Network:   network.Context("kovan"),
		Config:    config,
		Relayer:   chain,
		Artifacts: ledgertest.NewArtifactStore(),
		Accounts:  accounts.NewResolver(hclog.NewNullLogger(), accounts.FromIndex(chain, &index)),
	})

	target := ethgo.Address{0x78}
	amount := big.NewInt(5)

	_, err = deployer.FundWithLink(ctx, target, amount)
	require.NoError(t, err)

	balance, err := link.CallBigInt("balanceOf", target)
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(balance))

	_, err = deployer.FundWithLink(ctx, target, nil)
	require.NoError(t, err)

	balance, err = link.CallBigInt("balanceOf", target)
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).Add(amount, DefaultLinkAmount).Cmp(balance))
}
