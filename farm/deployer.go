// Package farm deploys the DappToken and TokenFarm contracts and registers
// the tokens the farm accepts
package farm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/deployments"
	"github.com/0xPolygon/token-farm/frontend"
	"github.com/0xPolygon/token-farm/ledger"
	"github.com/0xPolygon/token-farm/network"
	"github.com/0xPolygon/token-farm/resolver"
	"github.com/0xPolygon/token-farm/txrelayer"
	"github.com/0xPolygon/token-farm/verify"
)

const (
	// DefaultConfirmations awaited for every transaction
	DefaultConfirmations uint64 = 1
)

var (
	// KeptBalance is the amount of DappToken the deployer keeps
	KeptBalance = ethgo.Ether(100)

	// DefaultLinkAmount is 0.1 LINK
	DefaultLinkAmount = big.NewInt(100_000_000_000_000_000)

	errNoVerifier = errors.New("verification requested but no explorer is configured")
)

// AccountResolver selects the deploying account
type AccountResolver interface {
	Resolve() (*accounts.Account, error)
}

// Params are the dependencies of a Deployer
type Params struct {
	Logger    hclog.Logger
	Network   network.Context
	Config    *network.Config
	Relayer   txrelayer.TxRelayer
	Artifacts contracts.ArtifactSource
	Accounts  AccountResolver

	// BuildDir receives the deployment map on live networks
	BuildDir string
	// Verifier publishes sources on networks with verification enabled
	Verifier verify.Verifier
	// Frontend is synced after a deployment on request
	Frontend frontend.Syncer

	Confirmations uint64
}

// DeployOptions tune a single deployment run
type DeployOptions struct {
	UpdateFrontend bool
}

// Result describes a completed deployment
type Result struct {
	Account       *accounts.Account
	DappToken     *ledger.Contract
	TokenFarm     *ledger.Contract
	AllowedTokens []AllowedToken
	FarmBalance   *big.Int
	Verified      bool
	Recorded      bool
	FrontendSync  bool
}

// Deployer runs the token farm deployment workflow
type Deployer struct {
	logger        hclog.Logger
	network       network.Context
	config        *network.Config
	relayer       txrelayer.TxRelayer
	artifacts     contracts.ArtifactSource
	accounts      AccountResolver
	buildDir      string
	verifier      verify.Verifier
	frontend      frontend.Syncer
	confirmations uint64

	// contract resolvers per deploying account, kept for the lifetime of
	// the deployer so mocks deployed by one operation are reused by the next
	resolvers     map[ethgo.Address]*resolver.Resolver
	resolversLock sync.Mutex
}

func NewDeployer(p Params) *Deployer {
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	confirmations := p.Confirmations
	if confirmations == 0 {
		confirmations = DefaultConfirmations
	}

	buildDir := p.BuildDir
	if buildDir == "" {
		buildDir = contracts.DefaultBuildDir
	}

	return &Deployer{
		logger:        logger.Named("deployer"),
		network:       p.Network,
		config:        p.Config,
		relayer:       p.Relayer,
		artifacts:     p.Artifacts,
		accounts:      p.Accounts,
		buildDir:      buildDir,
		verifier:      p.Verifier,
		frontend:      p.Frontend,
		confirmations: confirmations,
		resolvers:     map[ethgo.Address]*resolver.Resolver{},
	}
}

func (d *Deployer) resolveAccount() (*accounts.Account, error) {
	if d.accounts == nil {
		return nil, accounts.ErrNoAccount
	}

	account, err := d.accounts.Resolve()
	if err != nil {
		return nil, err
	}

	d.logger.Info("using account", "address", account.Address(), "network", d.network)

	return account, nil
}

// resolverFor returns the contract resolver of the account, creating it on first use
func (d *Deployer) resolverFor(account *accounts.Account) *resolver.Resolver {
	d.resolversLock.Lock()
	defer d.resolversLock.Unlock()

	if r, ok := d.resolvers[account.Address()]; ok {
		return r
	}

	r := resolver.NewResolver(resolver.Params{
		Logger:        d.logger,
		Network:       d.network,
		Config:        d.config,
		Relayer:       d.relayer,
		Artifacts:     d.artifacts,
		Account:       account,
		Confirmations: d.confirmations,
	})
	d.resolvers[account.Address()] = r

	return r
}

func (d *Deployer) deploy(ctx context.Context, typ *contracts.ContractType,
	from *accounts.Account, args ...interface{}) (*contracts.Artifact, *ledger.Contract, error) {
	artifact, err := d.artifacts.Artifact(typ.Name)
	if err != nil {
		return nil, nil, err
	}

	contract, err := ledger.DeployConfirmed(ctx, d.relayer, artifact, from, d.confirmations, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to deploy %s: %w", typ.Name, err)
	}

	d.logger.Info("contract deployed", "contract", typ.Name, "address", contract.Address())

	return artifact, contract, nil
}

// DeployTokenFarmAndDappToken deploys the token and the farm, hands the farm
// the token supply minus the kept balance and allow-lists the dapp, fau and
// weth tokens with their price feeds. Steps run in order and the first
// failure aborts the run without undoing earlier steps.
func (d *Deployer) DeployTokenFarmAndDappToken(ctx context.Context, opts DeployOptions) (*Result, error) {
	account, err := d.resolveAccount()
	if err != nil {
		return nil, err
	}

	result := &Result{Account: account}

	_, dappToken, err := d.deploy(ctx, contracts.DappToken, account)
	if err != nil {
		return nil, err
	}

	result.DappToken = dappToken

	farmArtifact, tokenFarm, err := d.deploy(ctx, contracts.TokenFarm, account, dappToken.Address())
	if err != nil {
		return nil, err
	}

	result.TokenFarm = tokenFarm

	if result.Verified, err = d.verify(ctx, farmArtifact, tokenFarm, dappToken.Address()); err != nil {
		return nil, err
	}

	if result.FarmBalance, err = d.fundFarm(ctx, dappToken, tokenFarm, account); err != nil {
		return nil, err
	}

	contractResolver := d.resolverFor(account)

	// resolution order matches the order the contracts are consumed in
	wethToken, err := contractResolver.Get(ctx, contracts.WethToken)
	if err != nil {
		return nil, err
	}

	fauToken, err := contractResolver.Get(ctx, contracts.FauToken)
	if err != nil {
		return nil, err
	}

	daiUsdPriceFeed, err := contractResolver.Get(ctx, contracts.DaiUsdPriceFeed)
	if err != nil {
		return nil, err
	}

	ethUsdPriceFeed, err := contractResolver.Get(ctx, contracts.EthUsdPriceFeed)
	if err != nil {
		return nil, err
	}

	result.AllowedTokens = []AllowedToken{
		{Token: dappToken, PriceFeed: daiUsdPriceFeed},
		{Token: fauToken, PriceFeed: daiUsdPriceFeed},
		{Token: wethToken, PriceFeed: ethUsdPriceFeed},
	}

	registrar := NewRegistrar(d.logger, d.confirmations)
	if err := registrar.AddAllowedTokens(ctx, tokenFarm, result.AllowedTokens, account); err != nil {
		return nil, err
	}

	if result.Recorded, err = d.record(dappToken, tokenFarm); err != nil {
		return nil, err
	}

	if opts.UpdateFrontend {
		if d.frontend == nil {
			return nil, errors.New("frontend update requested but no frontend is configured")
		}

		if err := d.frontend.Sync(); err != nil {
			return nil, err
		}

		result.FrontendSync = true
	}

	d.logger.Info("token farm deployed",
		"dapp_token", dappToken.Address(),
		"token_farm", tokenFarm.Address(),
		"farm_balance", result.FarmBalance,
	)

	return result, nil
}

func (d *Deployer) verify(ctx context.Context, artifact *contracts.Artifact,
	contract *ledger.Contract, args ...interface{}) (bool, error) {
	if d.network.IsLocal() {
		return false, nil
	}

	shouldVerify, err := d.config.ShouldVerify(d.network)
	if err != nil || !shouldVerify {
		return false, err
	}

	if d.verifier == nil {
		return false, errNoVerifier
	}

	if err := d.verifier.Verify(ctx, artifact, contract.Address(), args...); err != nil {
		return false, fmt.Errorf("failed to verify %s: %w", contract, err)
	}

	return true, nil
}

// fundFarm transfers the token supply minus the kept balance to the farm
func (d *Deployer) fundFarm(ctx context.Context, dappToken, tokenFarm *ledger.Contract,
	from *accounts.Account) (*big.Int, error) {
	supply, err := dappToken.CallBigInt("totalSupply")
	if err != nil {
		return nil, err
	}

	amount := new(big.Int).Sub(supply, KeptBalance)
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("total supply %s of %s is below the kept balance %s",
			supply, dappToken.Name(), KeptBalance)
	}

	tx, err := dappToken.Transact("transfer", from, tokenFarm.Address(), amount)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Wait(ctx, d.confirmations); err != nil {
		return nil, fmt.Errorf("failed to fund %s: %w", tokenFarm, err)
	}

	d.logger.Info("farm funded", "amount", amount, "kept", KeptBalance)

	return amount, nil
}

// record appends the deployed addresses to the deployment map of live networks
func (d *Deployer) record(deployed ...*ledger.Contract) (bool, error) {
	if d.network.IsLocal() {
		return false, nil
	}

	chainID, err := d.relayer.ChainID()
	if err != nil {
		return false, err
	}

	m, err := deployments.Load(d.buildDir)
	if err != nil {
		return false, err
	}

	for _, contract := range deployed {
		m.Record(chainID.Uint64(), contract.Name(), contract.Address())
	}

	if err := m.Save(); err != nil {
		return false, fmt.Errorf("failed to save deployment map: %w", err)
	}

	return true, nil
}

// DeployMocks deploys the full mock suite on a local network
func (d *Deployer) DeployMocks(ctx context.Context) (map[string]*ledger.Contract, error) {
	account, err := d.resolveAccount()
	if err != nil {
		return nil, err
	}

	contractResolver := d.resolverFor(account)
	if err := contractResolver.DeployMocks(ctx); err != nil {
		return nil, err
	}

	return contractResolver.Deployed(), nil
}

// FundWithLink transfers LINK from the deploying account to the target,
// DefaultLinkAmount when amount is nil
func (d *Deployer) FundWithLink(ctx context.Context, target ethgo.Address, amount *big.Int) (*ethgo.Receipt, error) {
	if amount == nil {
		amount = DefaultLinkAmount
	}

	account, err := d.resolveAccount()
	if err != nil {
		return nil, err
	}

	linkToken, err := d.resolverFor(account).Get(ctx, contracts.LinkTokenName)
	if err != nil {
		return nil, err
	}

	tx, err := linkToken.Transact("transfer", account, target, amount)
	if err != nil {
		return nil, err
	}

	receipt, err := tx.Wait(ctx, d.confirmations)
	if err != nil {
		return nil, fmt.Errorf("failed to fund %s with link: %w", target, err)
	}

	d.logger.Info("contract funded", "target", target, "amount", amount)

	return receipt, nil
}
