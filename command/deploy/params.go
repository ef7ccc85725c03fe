package deploy

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/token-farm/command/helper"
)

const (
	confirmationsFlag  = "confirmations"
	updateFrontendFlag = "update-frontend"
	frontendDirFlag    = "frontend-dir"
	timeoutFlag        = "timeout"
)

var (
	errNoConfirmations = errors.New("at least one confirmation is required")
	errInvalidTimeout  = errors.New("timeout must be positive")
)

type deployParams struct {
	network helper.NetworkFlags
	account helper.AccountFlags

	confirmations  uint64
	updateFrontend bool
	frontendDir    string
	timeout        time.Duration
}

func (p *deployParams) validateFlags(cmd *cobra.Command) error {
	if p.confirmations == 0 {
		return errNoConfirmations
	}

	if p.timeout <= 0 {
		return errInvalidTimeout
	}

	return p.account.Parse(cmd)
}
