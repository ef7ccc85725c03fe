package accounts

import (
	"errors"
	"os"

	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/secrets"
)

const (
	idFlag         = "id"
	privateKeyFlag = "private-key"

	// privateKeyEnv is read when --private-key is omitted
	privateKeyEnv = "FARM_PRIVATE_KEY"
)

var errMissingPrivateKey = errors.New("private key not provided, use --" + privateKeyFlag + " or " + privateKeyEnv)

type accountParams struct {
	id         string
	privateKey string
	password   string
	configPath string

	secrets helper.SecretsFlags

	// scrypt overrides the keystore key derivation parameters
	scrypt []int
}

func (p *accountParams) validateFlags(requireKey bool) error {
	if err := secrets.ValidateAccountID(p.id); err != nil {
		return err
	}

	if !requireKey {
		return nil
	}

	if p.privateKey == "" {
		p.privateKey = os.Getenv(privateKeyEnv)
	}

	if p.privateKey == "" {
		return errMissingPrivateKey
	}

	return nil
}
