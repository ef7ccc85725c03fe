package mocks

import (
	"github.com/spf13/cobra"
)

// GetCommand returns the mocks parent command
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mocks",
		Short: "Manages the mock contracts of local networks",
	}

	cmd.AddCommand(getDeployCommand())

	return cmd
}
