package accounts

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/network"
	"github.com/0xPolygon/token-farm/secrets"
)

// ErrNoAccount is returned when none of the strategies can provide an account
var ErrNoAccount = errors.New("no account available")

// NodeAccounts lists the accounts unlocked on the node
type NodeAccounts interface {
	Accounts() ([]ethgo.Address, error)
}

// Source is a single account resolution strategy. Resolve reports false when
// the strategy does not apply to the current run.
type Source interface {
	Name() string
	Resolve() (*Account, bool, error)
}

// Options are the caller supplied account selectors
type Options struct {
	// Index selects a node managed account, nil when not given
	Index *int
	// ID selects a named account stored in the secrets manager
	ID string
	// Password decrypts the keystore of the named account
	Password string
}

// Resolver evaluates account sources in order and returns the first match
type Resolver struct {
	logger  hclog.Logger
	sources []Source
}

func NewResolver(logger hclog.Logger, sources ...Source) *Resolver {
	return &Resolver{
		logger:  logger.Named("accounts"),
		sources: sources,
	}
}

// NewDefaultResolver builds the resolver with the standard precedence:
// index, id, the first node account on local and forked networks, the
// configured private key
func NewDefaultResolver(
	logger hclog.Logger,
	opts Options,
	node NodeAccounts,
	store secrets.SecretsManager,
	ctx network.Context,
	fromKey string,
) *Resolver {
	return NewResolver(logger,
		FromIndex(node, opts.Index),
		FromID(store, opts.ID, opts.Password),
		LocalDefault(node, ctx),
		FromKey(fromKey),
	)
}

// Resolve returns the account of the first applicable source
func (r *Resolver) Resolve() (*Account, error) {
	for _, source := range r.sources {
		account, ok, err := source.Resolve()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve account from %s: %w", source.Name(), err)
		}

		if ok {
			r.logger.Debug("account resolved", "source", source.Name(), "address", account.Address())

			return account, nil
		}
	}

	return nil, ErrNoAccount
}

type indexSource struct {
	node  NodeAccounts
	index *int
}

// FromIndex selects the node account at the given position
func FromIndex(node NodeAccounts, index *int) Source {
	return &indexSource{node: node, index: index}
}

func (s *indexSource) Name() string {
	return "index"
}

func (s *indexSource) Resolve() (*Account, bool, error) {
	if s.index == nil {
		return nil, false, nil
	}

	accounts, err := s.node.Accounts()
	if err != nil {
		return nil, false, err
	}

	if *s.index < 0 || *s.index >= len(accounts) {
		return nil, false, fmt.Errorf("account index %d out of range, node has %d accounts", *s.index, len(accounts))
	}

	return NewNodeAccount(accounts[*s.index]), true, nil
}

type idSource struct {
	store    secrets.SecretsManager
	id       string
	password string
}

// FromID decrypts the keystore stored under the account id
func FromID(store secrets.SecretsManager, id, password string) Source {
	return &idSource{store: store, id: id, password: password}
}

func (s *idSource) Name() string {
	return "id"
}

func (s *idSource) Resolve() (*Account, bool, error) {
	if s.id == "" {
		return nil, false, nil
	}

	if s.store == nil {
		return nil, false, errors.New("no secrets manager configured")
	}

	if err := secrets.ValidateAccountID(s.id); err != nil {
		return nil, false, err
	}

	content, err := s.store.GetSecret(secrets.AccountKeyName(s.id))
	if err != nil {
		return nil, false, err
	}

	account, err := NewAccountFromKeystore(content, s.password)
	if err != nil {
		return nil, false, fmt.Errorf("account '%s': %w", s.id, err)
	}

	return account, true, nil
}

type localDefaultSource struct {
	node NodeAccounts
	ctx  network.Context
}

// LocalDefault selects the first node account on local and forked networks
func LocalDefault(node NodeAccounts, ctx network.Context) Source {
	return &localDefaultSource{node: node, ctx: ctx}
}

func (s *localDefaultSource) Name() string {
	return "local default"
}

func (s *localDefaultSource) Resolve() (*Account, bool, error) {
	if !s.ctx.HasDevelopmentAccounts() {
		return nil, false, nil
	}

	accounts, err := s.node.Accounts()
	if err != nil {
		return nil, false, err
	}

	if len(accounts) == 0 {
		return nil, false, fmt.Errorf("network '%s' exposes no development accounts", s.ctx)
	}

	return NewNodeAccount(accounts[0]), true, nil
}

type fromKeySource struct {
	privateKey string
}

// FromKey uses the private key of the network configuration
func FromKey(privateKey string) Source {
	return &fromKeySource{privateKey: privateKey}
}

func (s *fromKeySource) Name() string {
	return "from key"
}

func (s *fromKeySource) Resolve() (*Account, bool, error) {
	if s.privateKey == "" {
		return nil, false, nil
	}

	account, err := NewAccountFromPrivateKey(s.privateKey)
	if err != nil {
		return nil, false, err
	}

	return account, true, nil
}
