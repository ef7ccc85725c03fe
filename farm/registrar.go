package farm

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/ledger"
)

const (
	addAllowedTokenMethod      = "addAllowedToken"
	setPriceFeedContractMethod = "setPriceFeedContract"
)

// AllowedToken associates a stakeable token with the feed pricing it
type AllowedToken struct {
	Token     *ledger.Contract
	PriceFeed *ledger.Contract
}

// Registrar registers allowed tokens and their price feeds on a farm
type Registrar struct {
	logger        hclog.Logger
	confirmations uint64
}

func NewRegistrar(logger hclog.Logger, confirmations uint64) *Registrar {
	if confirmations == 0 {
		confirmations = DefaultConfirmations
	}

	return &Registrar{
		logger:        logger.Named("registrar"),
		confirmations: confirmations,
	}
}

// AddAllowedTokens allow-lists every token in order and binds its price feed.
// Each transaction is confirmed before the next one is sent; the first
// rejection aborts the registration and is returned as is.
func (r *Registrar) AddAllowedTokens(
	ctx context.Context,
	tokenFarm *ledger.Contract,
	allowed []AllowedToken,
	from *accounts.Account,
) error {
	for _, entry := range allowed {
		token := entry.Token.Address()

		if err := r.transact(ctx, tokenFarm, from, addAllowedTokenMethod, token); err != nil {
			return err
		}

		if err := r.transact(ctx, tokenFarm, from, setPriceFeedContractMethod,
			token, entry.PriceFeed.Address()); err != nil {
			return err
		}

		r.logger.Info("token allowed",
			"token", entry.Token.Name(),
			"address", token,
			"price_feed", entry.PriceFeed.Address(),
		)
	}

	return nil
}

func (r *Registrar) transact(
	ctx context.Context,
	tokenFarm *ledger.Contract,
	from *accounts.Account,
	method string,
	args ...interface{},
) error {
	tx, err := tokenFarm.Transact(method, from, args...)
	if err != nil {
		return err
	}

	if _, err := tx.Wait(ctx, r.confirmations); err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}

	return nil
}
