package mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command"
	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/farm"
)

const timeoutFlag = "timeout"

var errInvalidTimeout = errors.New("timeout must be positive")

type deployParams struct {
	network helper.NetworkFlags
	account helper.AccountFlags
	timeout time.Duration
}

func (p *deployParams) validateFlags(cmd *cobra.Command) error {
	if p.timeout <= 0 {
		return errInvalidTimeout
	}

	return p.account.Parse(cmd)
}

var params deployParams

func getDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploys the price feed, LINK, DAI, WETH and VRF coordinator mocks",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return params.validateFlags(cmd)
		},
		Run: runDeployCommand,
	}

	params.network.Register(cmd)
	params.account.Register(cmd)

	cmd.Flags().DurationVar(
		&params.timeout,
		timeoutFlag,
		command.DefaultTimeout,
		"the maximum duration of the mock deployment",
	)

	return cmd
}

func runDeployCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger, err := helper.NewLogger(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	env, err := helper.NewEnvironment(logger, &params.network)
	if err != nil {
		outputter.SetError(err)

		return
	}

	accountResolver, err := env.AccountResolver(&params.account)
	if err != nil {
		outputter.SetError(err)

		return
	}

	deployer := farm.NewDeployer(farm.Params{
		Logger:    logger,
		Network:   env.Network,
		Config:    env.Config,
		Relayer:   env.Relayer,
		Artifacts: env.Artifacts,
		Accounts:  accountResolver,
		BuildDir:  params.network.BuildDir,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), params.timeout)
	defer cancel()

	outputter.WriteCommandResult(&command.MessageResult{
		Message: fmt.Sprintf("[MOCKS] deploying mocks on network '%s'...", env.Network),
	})

	deployed, err := deployer.DeployMocks(ctx)
	if err != nil {
		outputter.SetError(fmt.Errorf("failed to deploy mocks: %w", err))

		return
	}

	outputter.SetCommandResult(newMocksResult(env.Network.String(), deployed))
}
