package deploy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command"
	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/farm"
	"github.com/0xPolygon/token-farm/frontend"
	"github.com/0xPolygon/token-farm/verify"
)

var params deployParams

// GetCommand returns the deploy command
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploys the DappToken and TokenFarm contracts and allow-lists the stakeable tokens",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return params.validateFlags(cmd)
		},
		Run: runCommand,
	}

	setFlags(cmd, &params)

	return cmd
}

func setFlags(cmd *cobra.Command, p *deployParams) {
	p.network.Register(cmd)
	p.account.Register(cmd)

	cmd.Flags().Uint64Var(
		&p.confirmations,
		confirmationsFlag,
		farm.DefaultConfirmations,
		"the number of confirmations awaited for every transaction",
	)

	cmd.Flags().BoolVar(
		&p.updateFrontend,
		updateFrontendFlag,
		false,
		"copy the build directory and the configuration into the frontend after deploying",
	)

	cmd.Flags().StringVar(
		&p.frontendDir,
		frontendDirFlag,
		frontend.DefaultDir,
		"the frontend project updated with --"+updateFrontendFlag,
	)

	cmd.Flags().DurationVar(
		&p.timeout,
		timeoutFlag,
		command.DefaultTimeout,
		"the maximum duration of the whole deployment",
	)
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	result, err := runDeploy(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(result)
}

func runDeploy(cmd *cobra.Command) (*deployResult, error) {
	logger, err := helper.NewLogger(cmd)
	if err != nil {
		return nil, err
	}

	// ties together the log lines of one deployment run
	logger = logger.With("run", uuid.New().String())

	env, err := helper.NewEnvironment(logger, &params.network)
	if err != nil {
		return nil, err
	}

	accountResolver, err := env.AccountResolver(&params.account)
	if err != nil {
		return nil, err
	}

	verifier, err := newVerifier(env)
	if err != nil {
		return nil, err
	}

	deployer := farm.NewDeployer(farm.Params{
		Logger:        logger,
		Network:       env.Network,
		Config:        env.Config,
		Relayer:       env.Relayer,
		Artifacts:     env.Artifacts,
		Accounts:      accountResolver,
		BuildDir:      params.network.BuildDir,
		Verifier:      verifier,
		Frontend:      frontend.NewSync(logger, params.network.BuildDir, env.Config.Path(), params.frontendDir),
		Confirmations: params.confirmations,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), params.timeout)
	defer cancel()

	res, err := deployer.DeployTokenFarmAndDappToken(ctx, farm.DeployOptions{
		UpdateFrontend: params.updateFrontend,
	})
	if err != nil {
		return nil, fmt.Errorf("deployment on network '%s' failed: %w", env.Network, err)
	}

	return newDeployResult(env.Network.String(), res), nil
}

// newVerifier returns the explorer client of networks with verification
// enabled, nil otherwise
func newVerifier(env *helper.Environment) (verify.Verifier, error) {
	if env.Network.IsLocal() {
		return nil, nil
	}

	shouldVerify, err := env.Config.ShouldVerify(env.Network)
	if err != nil || !shouldVerify {
		return nil, err
	}

	settings, err := env.Config.Network(env.Network)
	if err != nil {
		return nil, err
	}

	client, err := verify.NewClient(env.Logger, settings.Explorer)
	if err != nil {
		return nil, fmt.Errorf("network '%s' requests verification: %w", env.Network, err)
	}

	return client, nil
}
