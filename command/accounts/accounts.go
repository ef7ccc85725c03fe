package accounts

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/command"
	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/network"
	"github.com/0xPolygon/token-farm/secrets"
)

var (
	importParams   accountParams
	generateParams accountParams
)

// GetCommand returns the accounts parent command
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manages the named accounts stored in the secrets manager",
	}

	cmd.AddCommand(
		getImportCommand(),
		getGenerateCommand(),
	)

	return cmd
}

func setIDFlag(cmd *cobra.Command, p *accountParams) {
	cmd.Flags().StringVar(
		&p.id,
		idFlag,
		"",
		"the id the account is stored under",
	)

	_ = cmd.MarkFlagRequired(idFlag)
}

func setStoreFlags(cmd *cobra.Command, p *accountParams) {
	cmd.Flags().StringVar(
		&p.configPath,
		helper.ConfigFlag,
		network.DefaultConfigPath,
		"the path to the network configuration file, its secrets_config entry locates the secrets manager",
	)

	helper.RegisterPasswordFlag(cmd, &p.password)
	p.secrets.Register(cmd)
}

func getImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Stores an existing private key under an account id",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return importParams.validateFlags(true)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			runAccountCommand(cmd, &importParams, importAccount)
		},
	}

	setIDFlag(cmd, &importParams)
	setStoreFlags(cmd, &importParams)

	cmd.Flags().StringVar(
		&importParams.privateKey,
		privateKeyFlag,
		"",
		"the hex encoded private key, read from "+privateKeyEnv+" when omitted",
	)

	return cmd
}

func getGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generates a new private key and stores it under an account id",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return generateParams.validateFlags(false)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			runAccountCommand(cmd, &generateParams, generateAccount)
		},
	}

	setIDFlag(cmd, &generateParams)
	setStoreFlags(cmd, &generateParams)

	return cmd
}

type accountFunc func(p *accountParams) (*accounts.Account, error)

func runAccountCommand(cmd *cobra.Command, p *accountParams, fn accountFunc) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger, err := helper.NewLogger(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	res, err := storeAccount(logger, p, fn)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(res)
}

func storeAccount(logger hclog.Logger, p *accountParams, fn accountFunc) (*accountResult, error) {
	config, err := network.LoadConfig(p.configPath)
	if err != nil {
		return nil, err
	}

	store, err := p.secrets.SecretsManager(logger, config)
	if err != nil {
		return nil, err
	}

	name := secrets.AccountKeyName(p.id)
	if store.HasSecret(name) {
		return nil, fmt.Errorf("account '%s': %w", p.id, secrets.ErrSecretAlreadyExists)
	}

	password, err := helper.ResolvePassword(p.password)
	if err != nil {
		return nil, err
	}

	account, err := fn(p)
	if err != nil {
		return nil, err
	}

	sealed, err := account.Encrypt(password, p.scrypt...)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt account '%s': %w", p.id, err)
	}

	if err := store.SetSecret(name, sealed); err != nil {
		return nil, fmt.Errorf("failed to store account '%s': %w", p.id, err)
	}

	logger.Debug("account stored", "id", p.id, "address", account.Address())

	return &accountResult{ID: p.id, Address: account.Address().String()}, nil
}

func importAccount(p *accountParams) (*accounts.Account, error) {
	return accounts.NewAccountFromPrivateKey(p.privateKey)
}

func generateAccount(_ *accountParams) (*accounts.Account, error) {
	account, _, err := accounts.GenerateAccount()

	return account, err
}
