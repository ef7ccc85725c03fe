package helper

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/network"
	"github.com/0xPolygon/token-farm/secrets"
	secretsHelper "github.com/0xPolygon/token-farm/secrets/helper"
	"github.com/0xPolygon/token-farm/txrelayer"
)

const (
	NetworkFlag       = "network"
	ConfigFlag        = "config"
	BuildDirFlag      = "build-dir"
	AccountIndexFlag  = "account-index"
	AccountIDFlag     = "account-id"
	DataDirFlag       = "data-dir"
	SecretsConfigFlag = "secrets-config"
	PasswordFlag      = "password"
)

var errNegativeIndex = errors.New("account index must not be negative")

// NetworkFlags select the network configuration and the active network
type NetworkFlags struct {
	Network    string
	ConfigPath string
	BuildDir   string
}

func (f *NetworkFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&f.Network,
		NetworkFlag,
		"",
		"the network to run against, the configured default network when omitted",
	)

	cmd.Flags().StringVar(
		&f.ConfigPath,
		ConfigFlag,
		network.DefaultConfigPath,
		"the path to the network configuration file (yaml, json or hcl)",
	)

	cmd.Flags().StringVar(
		&f.BuildDir,
		BuildDirFlag,
		contracts.DefaultBuildDir,
		"the directory holding the compiled contract artifacts",
	)
}

// SecretsFlags locate the secrets manager holding named accounts
type SecretsFlags struct {
	DataDir    string
	ConfigPath string
}

func (f *SecretsFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&f.DataDir,
		DataDirFlag,
		secretsHelper.DefaultDataDir,
		"the directory of the local secrets manager",
	)

	cmd.Flags().StringVar(
		&f.ConfigPath,
		SecretsConfigFlag,
		"",
		"the path to the secrets manager config file, "+
			"if omitted, the secrets_config entry of the network configuration or the local FS is used",
	)
}

// SecretsManager returns the configured secrets manager, falling back to the
// network configuration entry and finally to the local one
func (f *SecretsFlags) SecretsManager(logger hclog.Logger, config *network.Config) (secrets.SecretsManager, error) {
	configPath := f.ConfigPath
	if configPath == "" && config != nil {
		configPath = config.SecretsConfig
	}

	return secretsHelper.GetSecretsManager(logger, f.DataDir, configPath)
}

// AccountFlags select the deploying account
type AccountFlags struct {
	Index    int
	ID       string
	Password string

	Secrets SecretsFlags

	indexSet bool
}

func (f *AccountFlags) Register(cmd *cobra.Command) {
	cmd.Flags().IntVar(
		&f.Index,
		AccountIndexFlag,
		0,
		"the index of the node managed account to use",
	)

	cmd.Flags().StringVar(
		&f.ID,
		AccountIDFlag,
		"",
		"the id of an account stored in the secrets manager",
	)

	RegisterPasswordFlag(cmd, &f.Password)
	f.Secrets.Register(cmd)
}

// Parse records which selectors were given on the command line
func (f *AccountFlags) Parse(cmd *cobra.Command) error {
	f.indexSet = cmd.Flags().Changed(AccountIndexFlag)

	if f.indexSet && f.Index < 0 {
		return errNegativeIndex
	}

	if f.ID != "" {
		return secrets.ValidateAccountID(f.ID)
	}

	return nil
}

// Options converts the flags into account resolver options
func (f *AccountFlags) Options() accounts.Options {
	opts := accounts.Options{ID: f.ID}

	if f.indexSet {
		index := f.Index
		opts.Index = &index
	}

	return opts
}

// Environment is the runtime shared by the commands talking to a network
type Environment struct {
	Logger    hclog.Logger
	Config    *network.Config
	Network   network.Context
	Relayer   txrelayer.TxRelayer
	Artifacts *contracts.Store
}

// NewEnvironment loads the network configuration and connects to the active network
func NewEnvironment(logger hclog.Logger, flags *NetworkFlags) (*Environment, error) {
	config, err := network.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	ctx, err := config.ActiveNetwork(flags.Network)
	if err != nil {
		return nil, err
	}

	addr, err := config.JSONRPCAddr(ctx)
	if err != nil {
		return nil, err
	}

	relayer, err := txrelayer.NewTxRelayer(
		txrelayer.WithIPAddress(addr),
		txrelayer.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network '%s' at %s: %w", ctx, addr, err)
	}

	logger.Debug("connected", "network", ctx, "jsonrpc", addr)

	return &Environment{
		Logger:    logger,
		Config:    config,
		Network:   ctx,
		Relayer:   relayer,
		Artifacts: contracts.NewStore(flags.BuildDir),
	}, nil
}

// AccountResolver builds the account resolution chain of the environment
func (e *Environment) AccountResolver(flags *AccountFlags) (*accounts.Resolver, error) {
	var store secrets.SecretsManager

	opts := flags.Options()

	if flags.ID != "" {
		var err error

		if store, err = flags.Secrets.SecretsManager(e.Logger, e.Config); err != nil {
			return nil, err
		}

		if opts.Password, err = ResolvePassword(flags.Password); err != nil {
			return nil, err
		}
	}

	return accounts.NewDefaultResolver(
		e.Logger,
		opts,
		e.Relayer,
		store,
		e.Network,
		e.Config.FromKey(),
	), nil
}
