package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

type CLIOutput struct {
	commonOutputFormatter
}

func newCLIOutput(cmd *cobra.Command) *CLIOutput {
	return &CLIOutput{
		commonOutputFormatter{
			stdout: cmd.OutOrStdout(),
			stderr: cmd.ErrOrStderr(),
		},
	}
}

func (cli *CLIOutput) WriteOutput() {
	if cli.errorOutput != nil {
		_, _ = fmt.Fprintln(cli.stderr, cli.getErrorOutput())

		return
	}

	if cli.commandOutput == nil {
		return
	}

	_, _ = fmt.Fprintln(cli.stdout, cli.getCommandOutput())
}

func (cli *CLIOutput) WriteCommandResult(result CommandResult) {
	_, _ = fmt.Fprintln(cli.stdout, result.GetOutput())
}

func (cli *CLIOutput) getErrorOutput() string {
	return cli.errorOutput.Error()
}

func (cli *CLIOutput) getCommandOutput() string {
	return cli.commandOutput.GetOutput()
}
