package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command"
	"github.com/0xPolygon/token-farm/command/accounts"
	"github.com/0xPolygon/token-farm/command/deploy"
	"github.com/0xPolygon/token-farm/command/frontend"
	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/command/mocks"
	"github.com/0xPolygon/token-farm/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:           "farmctl",
			Short:         "farmctl deploys the TokenFarm and DappToken contracts and keeps the frontend in sync",
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)
	helper.RegisterLogLevelFlag(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		deploy.GetCommand(),
		mocks.GetCommand(),
		frontend.GetCommand(),
		accounts.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}

	if command.Failed() {
		os.Exit(1)
	}
}
