package accounts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/keystore"
	"github.com/umbracle/ethgo/wallet"

	"github.com/0xPolygon/token-farm/helper/hex"
)

// Account is a sending identity. It either carries a private key, or refers
// to an account unlocked on the node, whose transactions are sent unsigned.
type Account struct {
	address ethgo.Address
	key     ethgo.Key
}

// NewNodeAccount returns an account managed by the node
func NewNodeAccount(address ethgo.Address) *Account {
	return &Account{address: address}
}

// NewKeyAccount returns an account signing with the given key
func NewKeyAccount(key ethgo.Key) *Account {
	return &Account{address: key.Address(), key: key}
}

// NewAccountFromPrivateKey parses a hex encoded secp256k1 private key
func NewAccountFromPrivateKey(privateKey string) (*Account, error) {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey == "" {
		return nil, fmt.Errorf("empty private key")
	}

	raw, err := hex.DecodeHex(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	key, err := wallet.NewWalletFromPrivKey(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return NewKeyAccount(key), nil
}

// NewAccountFromKeystore decrypts a V3 keystore holding a private key
func NewAccountFromKeystore(content []byte, password string) (*Account, error) {
	key, err := wallet.NewJSONWalletFromContent(content, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}

	return NewKeyAccount(key), nil
}

// GenerateAccount creates an account with a fresh random key and returns it
// with the hex encoded private key
func GenerateAccount() (*Account, string, error) {
	key, err := wallet.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	raw, err := key.MarshallPrivateKey()
	if err != nil {
		return nil, "", err
	}

	return NewKeyAccount(key), hex.EncodeToHex(raw), nil
}

// Encrypt seals the private key into a V3 keystore. The optional scrypt
// parameters are passed through to the keystore encoding.
func (a *Account) Encrypt(password string, scrypt ...int) ([]byte, error) {
	if a.IsNodeManaged() {
		return nil, errors.New("node managed accounts carry no private key")
	}

	key, ok := a.key.(*wallet.Key)
	if !ok {
		return nil, fmt.Errorf("account %s key cannot be exported", a.address)
	}

	raw, err := key.MarshallPrivateKey()
	if err != nil {
		return nil, err
	}

	return keystore.EncryptV3(raw, password, scrypt...)
}

func (a *Account) Address() ethgo.Address {
	return a.address
}

// Key returns the signing key, nil for node managed accounts
func (a *Account) Key() ethgo.Key {
	return a.key
}

// IsNodeManaged reports whether transactions are signed by the node
func (a *Account) IsNodeManaged() bool {
	return a.key == nil
}

func (a *Account) String() string {
	return a.address.String()
}
