package command

import (
	"io"
	"sync/atomic"
)

// failed is set once any command reported an error, so the process can exit non-zero
var failed atomic.Bool

// Failed reports whether a command output carried an error
func Failed() bool {
	return failed.Load()
}

type commonOutputFormatter struct {
	errorOutput   error
	commandOutput CommandResult

	stdout io.Writer
	stderr io.Writer
}

func (c *commonOutputFormatter) SetError(err error) {
	c.errorOutput = err

	failed.Store(true)
}

func (c *commonOutputFormatter) SetCommandResult(result CommandResult) {
	c.commandOutput = result
}
