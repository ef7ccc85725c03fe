package resolver

import (
	"context"
	"fmt"
	"math/big"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/ledger"
	"github.com/0xPolygon/token-farm/network"
	"github.com/0xPolygon/token-farm/txrelayer"
)

const (
	// Decimals of the mocked price feeds
	Decimals uint8 = 8
	// InitialValue reported by the mocked price feeds
	InitialValue int64 = 200_000_000_000
)

// Resolver turns logical contract names into contract handles. On local
// networks missing contracts are deployed as mocks and recorded, so repeated
// lookups return the same instance.
type Resolver struct {
	logger    hclog.Logger
	network   network.Context
	config    *network.Config
	relayer   txrelayer.TxRelayer
	artifacts contracts.ArtifactSource
	account   *accounts.Account

	confirmations uint64

	// logical name -> most recently deployed handle
	deployed map[string]*ledger.Contract
}

// Params bundles the dependencies of a resolver
type Params struct {
	Logger    hclog.Logger
	Network   network.Context
	Config    *network.Config
	Relayer   txrelayer.TxRelayer
	Artifacts contracts.ArtifactSource
	// Account deploys the mocks on local networks
	Account *accounts.Account
	// Confirmations awaited for every mock deployment, one when zero
	Confirmations uint64
}

func NewResolver(p Params) *Resolver {
	logger := p.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	confirmations := p.Confirmations
	if confirmations == 0 {
		confirmations = 1
	}

	return &Resolver{
		logger:        logger.Named("resolver"),
		network:       p.Network,
		config:        p.Config,
		relayer:       p.Relayer,
		artifacts:     p.Artifacts,
		account:       p.Account,
		confirmations: confirmations,
		deployed:      map[string]*ledger.Contract{},
	}
}

// Get returns the contract registered under the logical name
func (r *Resolver) Get(ctx context.Context, name string) (*ledger.Contract, error) {
	typ, err := contracts.Lookup(name)
	if err != nil {
		return nil, err
	}

	if !r.network.IsLocal() {
		addr, err := r.config.ContractAddress(r.network, name)
		if err != nil {
			return nil, err
		}

		r.logger.Debug("bound configured contract", "contract", name, "address", addr)

		return ledger.At(r.relayer, typ, addr), nil
	}

	if contract, ok := r.deployed[name]; ok {
		return contract, nil
	}

	contract, err := r.deployMock(ctx, name, typ)
	if err != nil {
		return nil, err
	}

	r.Record(name, contract)

	return contract, nil
}

// Record stores the handle as the current instance of the logical name
func (r *Resolver) Record(name string, contract *ledger.Contract) {
	r.deployed[name] = contract
}

// Deployed returns a copy of the recorded handles
func (r *Resolver) Deployed() map[string]*ledger.Contract {
	res := make(map[string]*ledger.Contract, len(r.deployed))
	for name, contract := range r.deployed {
		res[name] = contract
	}

	return res
}

// DeployMocks deploys the whole mock suite and records it under every logical
// name backed by a mock, replacing previous records
func (r *Resolver) DeployMocks(ctx context.Context) error {
	if !r.network.IsLocal() {
		return fmt.Errorf("mocks can only be deployed on local networks, active network is '%s'", r.network)
	}

	r.logger.Info("deploying mocks", "network", r.network)

	priceFeed, err := r.deploy(ctx, contracts.MockV3Aggregator, Decimals, big.NewInt(InitialValue))
	if err != nil {
		return err
	}

	linkToken, err := r.deploy(ctx, contracts.LinkToken)
	if err != nil {
		return err
	}

	fauToken, err := r.deploy(ctx, contracts.MockDAI)
	if err != nil {
		return err
	}

	wethToken, err := r.deploy(ctx, contracts.MockWETH)
	if err != nil {
		return err
	}

	vrfCoordinator, err := r.deploy(ctx, contracts.VRFCoordinatorMock, linkToken.Address())
	if err != nil {
		return err
	}

	r.Record(contracts.EthUsdPriceFeed, priceFeed)
	r.Record(contracts.DaiUsdPriceFeed, priceFeed)
	r.Record(contracts.WethUsdPriceFeed, priceFeed)
	r.Record(contracts.LinkTokenName, linkToken)
	r.Record(contracts.FauToken, fauToken)
	r.Record(contracts.WethToken, wethToken)
	r.Record(contracts.VRFCoordinator, vrfCoordinator)

	r.logger.Info("all mocks deployed")

	return nil
}

// deployMock deploys the mock backing a single logical name
func (r *Resolver) deployMock(ctx context.Context, name string, typ *contracts.ContractType) (*ledger.Contract, error) {
	switch typ {
	case contracts.MockV3Aggregator:
		return r.deploy(ctx, typ, Decimals, big.NewInt(InitialValue))
	case contracts.VRFCoordinatorMock:
		link, err := r.Get(ctx, contracts.LinkTokenName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve link token for %s: %w", name, err)
		}

		return r.deploy(ctx, typ, link.Address())
	default:
		return r.deploy(ctx, typ)
	}
}

func (r *Resolver) deploy(ctx context.Context, typ *contracts.ContractType, args ...interface{}) (*ledger.Contract, error) {
	if r.account == nil {
		return nil, fmt.Errorf("no account to deploy %s with: %w", typ.Name, accounts.ErrNoAccount)
	}

	artifact, err := r.artifacts.Artifact(typ.Name)
	if err != nil {
		return nil, err
	}

	contract, err := ledger.DeployConfirmed(ctx, r.relayer, artifact, r.account, r.confirmations, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy mock %s: %w", typ.Name, err)
	}

	r.logger.Info("mock deployed", "contract", typ.Name, "address", contract.Address())

	return contract, nil
}
