package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type JSONOutput struct {
	commonOutputFormatter
}

func newJSONOutput(cmd *cobra.Command) *JSONOutput {
	return &JSONOutput{
		commonOutputFormatter{
			stdout: cmd.OutOrStdout(),
			stderr: cmd.ErrOrStderr(),
		},
	}
}

func (jo *JSONOutput) WriteOutput() {
	if jo.errorOutput != nil {
		_, _ = fmt.Fprintln(jo.stderr, jo.getErrorOutput())

		return
	}

	if jo.commandOutput == nil {
		return
	}

	_, _ = fmt.Fprintln(jo.stdout, jo.getCommandOutput())
}

// WriteCommandResult is a no-op, JSON output only carries the final result
func (jo *JSONOutput) WriteCommandResult(_ CommandResult) {
}

func (jo *JSONOutput) getErrorOutput() string {
	return marshalJSONToString(
		struct {
			Err string `json:"error"`
		}{
			Err: jo.errorOutput.Error(),
		},
	)
}

func (jo *JSONOutput) getCommandOutput() string {
	return marshalJSONToString(jo.commandOutput)
}

func marshalJSONToString(input interface{}) string {
	bytes, err := json.Marshal(input)
	if err != nil {
		return err.Error()
	}

	return string(bytes)
}
