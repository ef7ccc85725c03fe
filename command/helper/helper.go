package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command"
)

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// RegisterLogLevelFlag registers the --log-level setting for all child commands
func RegisterLogLevelFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		command.LogLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output (trace, debug, info, warn, error)",
	)
}

// NewLogger creates the root logger of a command from its --log-level flag.
// Logs go to stderr so they never mix with the command output.
func NewLogger(cmd *cobra.Command) (hclog.Logger, error) {
	level := command.DefaultLogLevel

	if flag := cmd.Flag(command.LogLevelFlag); flag != nil {
		level = flag.Value.String()
	}

	logLevel := hclog.LevelFromString(level)
	if logLevel == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level '%s'", level)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "farmctl",
		Level:      logLevel,
		Output:     os.Stderr,
		JSONFormat: isJSONOutput(cmd),
	}), nil
}

func isJSONOutput(cmd *cobra.Command) bool {
	flag := cmd.Flag(command.JSONOutputFlag)

	return flag != nil && flag.Changed
}

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

// FormatTitle renders a section header of a command result
func FormatTitle(title string) string {
	return fmt.Sprintf("\n[%s]\n", strings.ToUpper(title))
}
