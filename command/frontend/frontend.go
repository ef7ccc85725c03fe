package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command"
	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/frontend"
	"github.com/0xPolygon/token-farm/network"
)

const (
	buildDirFlag    = "build-dir"
	configFlag      = "config"
	frontendDirFlag = "frontend-dir"
)

type updateParams struct {
	buildDir    string
	configPath  string
	frontendDir string
}

var params updateParams

// GetCommand returns the frontend parent command
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontend",
		Short: "Manages the frontend project",
	}

	cmd.AddCommand(getUpdateCommand())

	return cmd
}

func getUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Copies the build directory and the network configuration into the frontend",
		Run:   runUpdateCommand,
	}

	cmd.Flags().StringVar(
		&params.buildDir,
		buildDirFlag,
		contracts.DefaultBuildDir,
		"the directory holding the compiled contract artifacts",
	)

	cmd.Flags().StringVar(
		&params.configPath,
		configFlag,
		network.DefaultConfigPath,
		"the network configuration exported to the frontend",
	)

	cmd.Flags().StringVar(
		&params.frontendDir,
		frontendDirFlag,
		frontend.DefaultDir,
		"the frontend project directory",
	)

	return cmd
}

func runUpdateCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger, err := helper.NewLogger(cmd)
	if err != nil {
		outputter.SetError(err)

		return
	}

	configPath := params.configPath
	if configPath == network.DefaultConfigPath {
		// the default configuration file is optional
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			configPath = ""
		}
	}

	sync := frontend.NewSync(logger, params.buildDir, configPath, params.frontendDir)
	if err := sync.Sync(); err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(&updateResult{
		ChainInfo: sync.ChainInfoDir(),
		Config:    sync.ConfigFile(),
	})
}

type updateResult struct {
	ChainInfo string `json:"chainInfo"`
	Config    string `json:"config"`
}

func (r *updateResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(helper.FormatTitle("frontend updated"))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Chain info|%s", r.ChainInfo),
		fmt.Sprintf("Configuration|%s", r.Config),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
