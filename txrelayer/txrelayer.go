package txrelayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"
	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/jsonrpc"
	"github.com/umbracle/ethgo/wallet"
)

const (
	// DefaultRPCAddress is the endpoint of a local development node
	DefaultRPCAddress = "http://127.0.0.1:8545"

	defaultGasPrice       = 1879048192 // 0x70000000
	defaultGasLimit       = 5242880    // 0x500000
	defaultPollInterval   = 50 * time.Millisecond
	defaultReceiptTimeout = 2 * time.Minute
)

var (
	errNoAccounts      = errors.New("no accounts registered")
	errReceiptNotFound = errors.New("receipt not found")
	errNotConfirmed    = errors.New("transaction not confirmed yet")
)

// TxRelayer sends transactions to a node and waits for them to be confirmed
type TxRelayer interface {
	// Call executes a read-only message against the pending state
	Call(from ethgo.Address, to ethgo.Address, input []byte) (string, error)
	// SendTransaction signs the transaction with the key and submits it
	SendTransaction(txn *ethgo.Transaction, key ethgo.Key) (ethgo.Hash, error)
	// SendTransactionLocal submits an unsigned transaction from a node managed account
	SendTransactionLocal(txn *ethgo.Transaction) (ethgo.Hash, error)
	// WaitForReceipt blocks until the transaction is included and has the requested confirmations
	WaitForReceipt(ctx context.Context, hash ethgo.Hash, confirmations uint64) (*ethgo.Receipt, error)
	// Accounts returns the node managed accounts
	Accounts() ([]ethgo.Address, error)
	// ChainID returns the chain id reported by the node
	ChainID() (*big.Int, error)
}

// EthClient is the subset of the eth namespace used by the relayer
type EthClient interface {
	Accounts() ([]ethgo.Address, error)
	BlockNumber() (uint64, error)
	Call(msg *ethgo.CallMsg, block ethgo.BlockNumber, override ...*ethgo.StateOverride) (string, error)
	ChainID() (*big.Int, error)
	EstimateGas(msg *ethgo.CallMsg) (uint64, error)
	GasPrice() (uint64, error)
	GetNonce(addr ethgo.Address, blockNumber ethgo.BlockNumberOrHash) (uint64, error)
	GetTransactionReceipt(hash ethgo.Hash) (*ethgo.Receipt, error)
	SendRawTransaction(data []byte) (ethgo.Hash, error)
	SendTransaction(txn *ethgo.Transaction) (ethgo.Hash, error)
}

var (
	_ TxRelayer = (*txRelayer)(nil)
	_ EthClient = (*jsonrpc.Eth)(nil)
)

type txRelayer struct {
	ipAddress      string
	client         EthClient
	receiptTimeout time.Duration
	pollInterval   time.Duration
	logger         hclog.Logger

	chainID *big.Int
}

// NewTxRelayer creates a relayer talking to the node at the configured address
func NewTxRelayer(opts ...TxRelayerOption) (TxRelayer, error) {
	t := &txRelayer{
		ipAddress:      DefaultRPCAddress,
		receiptTimeout: defaultReceiptTimeout,
		pollInterval:   defaultPollInterval,
		logger:         hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		client, err := jsonrpc.NewClient(t.ipAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", t.ipAddress, err)
		}

		t.client = client.Eth()
	}

	return t, nil
}

// Call function is used to query a smart contract on given 'to' address
func (t *txRelayer) Call(from ethgo.Address, to ethgo.Address, input []byte) (string, error) {
	callMsg := &ethgo.CallMsg{
		From:     from,
		To:       &to,
		Data:     input,
		GasPrice: defaultGasPrice,
		Gas:      big.NewInt(defaultGasLimit),
	}

	return t.client.Call(callMsg, ethgo.Pending)
}

// SendTransaction signs given transaction by provided key and sends it to the blockchain
func (t *txRelayer) SendTransaction(txn *ethgo.Transaction, key ethgo.Key) (ethgo.Hash, error) {
	txn.From = key.Address()

	nonce, err := t.client.GetNonce(key.Address(), ethgo.Pending)
	if err != nil {
		return ethgo.ZeroHash, fmt.Errorf("failed to get nonce: %w", err)
	}

	txn.Nonce = nonce

	if err := t.fillGas(txn); err != nil {
		return ethgo.ZeroHash, err
	}

	chainID, err := t.ChainID()
	if err != nil {
		return ethgo.ZeroHash, err
	}

	signer := wallet.NewEIP155Signer(chainID.Uint64())
	if txn, err = signer.SignTx(txn, key); err != nil {
		return ethgo.ZeroHash, fmt.Errorf("failed to sign transaction: %w", err)
	}

	data, err := txn.MarshalRLPTo(nil)
	if err != nil {
		return ethgo.ZeroHash, err
	}

	hash, err := t.client.SendRawTransaction(data)
	if err != nil {
		return ethgo.ZeroHash, err
	}

	t.logger.Debug("transaction sent", "hash", hash, "from", txn.From, "nonce", txn.Nonce)

	return hash, nil
}

// SendTransactionLocal sends non-signed transaction. The sender is expected to be
// unlocked on the node, which is only the case for development chains.
func (t *txRelayer) SendTransactionLocal(txn *ethgo.Transaction) (ethgo.Hash, error) {
	if txn.From == ethgo.ZeroAddress {
		accounts, err := t.client.Accounts()
		if err != nil {
			return ethgo.ZeroHash, err
		}

		if len(accounts) == 0 {
			return ethgo.ZeroHash, errNoAccounts
		}

		txn.From = accounts[0]
	}

	if err := t.fillGas(txn); err != nil {
		return ethgo.ZeroHash, err
	}

	hash, err := t.client.SendTransaction(txn)
	if err != nil {
		return ethgo.ZeroHash, err
	}

	t.logger.Debug("local transaction sent", "hash", hash, "from", txn.From)

	return hash, nil
}

// WaitForReceipt polls for the receipt of the transaction until it has been
// included and the head is confirmations-1 blocks past its block
func (t *txRelayer) WaitForReceipt(ctx context.Context,
	hash ethgo.Hash, confirmations uint64) (*ethgo.Receipt, error) {
	if confirmations == 0 {
		confirmations = 1
	}

	ctx, cancel := context.WithTimeout(ctx, t.receiptTimeout)
	defer cancel()

	var receipt *ethgo.Receipt

	err := retry.Do(ctx, retry.NewConstant(t.pollInterval), func(context.Context) error {
		if receipt == nil {
			r, err := t.client.GetTransactionReceipt(hash)
			if err != nil && !isNotFound(err) {
				return err
			}

			if r == nil {
				return retry.RetryableError(errReceiptNotFound)
			}

			receipt = r
		}

		head, err := t.client.BlockNumber()
		if err != nil {
			return err
		}

		if head+1 < receipt.BlockNumber+confirmations {
			return retry.RetryableError(errNotConfirmed)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout while waiting for transaction %s to be confirmed", hash)
		}

		return nil, err
	}

	return receipt, nil
}

// Accounts returns the accounts managed by the node
func (t *txRelayer) Accounts() ([]ethgo.Address, error) {
	return t.client.Accounts()
}

// ChainID returns the chain id, queried once per relayer
func (t *txRelayer) ChainID() (*big.Int, error) {
	if t.chainID != nil {
		return t.chainID, nil
	}

	chainID, err := t.client.ChainID()
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	t.chainID = chainID

	return chainID, nil
}

func (t *txRelayer) fillGas(txn *ethgo.Transaction) error {
	if txn.GasPrice == 0 {
		gasPrice, err := t.client.GasPrice()
		if err != nil {
			return fmt.Errorf("failed to get gas price: %w", err)
		}

		if gasPrice == 0 {
			gasPrice = defaultGasPrice
		}

		txn.GasPrice = gasPrice
	}

	if txn.Gas == 0 {
		gasLimit, err := t.client.EstimateGas(&ethgo.CallMsg{
			From:     txn.From,
			To:       txn.To,
			Data:     txn.Input,
			Value:    txn.Value,
			GasPrice: txn.GasPrice,
		})
		if err != nil {
			// a failing estimation is reported by the node as the revert of the call
			if IsRevert(err) {
				return err
			}

			t.logger.Debug("gas estimation failed, using default gas limit", "err", err)

			gasLimit = defaultGasLimit
		}

		txn.Gas = gasLimit
	}

	return nil
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// IsRevert reports whether the node rejected a call or transaction because
// the contract execution reverted
func IsRevert(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "revert") || strings.Contains(msg, "vm exception")
}

type TxRelayerOption func(*txRelayer)

func WithClient(client EthClient) TxRelayerOption {
	return func(t *txRelayer) {
		t.client = client
	}
}

func WithIPAddress(ipAddress string) TxRelayerOption {
	return func(t *txRelayer) {
		t.ipAddress = ipAddress
	}
}

func WithReceiptTimeout(receiptTimeout time.Duration) TxRelayerOption {
	return func(t *txRelayer) {
		t.receiptTimeout = receiptTimeout
	}
}

func WithPollInterval(pollInterval time.Duration) TxRelayerOption {
	return func(t *txRelayer) {
		t.pollInterval = pollInterval
	}
}

func WithLogger(logger hclog.Logger) TxRelayerOption {
	return func(t *txRelayer) {
		t.logger = logger.Named("txrelayer")
	}
}
