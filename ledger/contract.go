package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/helper/hex"
	"github.com/0xPolygon/token-farm/txrelayer"
)

const receiptSuccess uint64 = 1

// ErrTransactionRejected is matched by every TransactionRejectedError
var ErrTransactionRejected = errors.New("transaction rejected")

// TransactionRejectedError is returned when the ledger refuses or reverts a transaction
type TransactionRejectedError struct {
	Contract string
	Method   string
	TxHash   ethgo.Hash
	Reason   string
}

func (e *TransactionRejectedError) Error() string {
	target := e.Contract
	if e.Method != "" {
		target = fmt.Sprintf("%s.%s", e.Contract, e.Method)
	}

	if e.TxHash != ethgo.ZeroHash {
		return fmt.Sprintf("transaction %s (%s) rejected: %s", target, e.TxHash, e.Reason)
	}

	return fmt.Sprintf("transaction %s rejected: %s", target, e.Reason)
}

func (e *TransactionRejectedError) Is(target error) bool {
	return target == ErrTransactionRejected
}

// Contract is a handle of a deployed contract instance
type Contract struct {
	name    string
	address ethgo.Address
	abi     *abi.ABI
	relayer txrelayer.TxRelayer

	receipt *ethgo.Receipt
}

// At binds an already deployed contract
func At(relayer txrelayer.TxRelayer, typ *contracts.ContractType, address ethgo.Address) *Contract {
	return &Contract{
		name:    typ.Name,
		address: address,
		abi:     typ.Abi,
		relayer: relayer,
	}
}

// Deploy sends the creation transaction of the artifact from the given
// account and waits for one confirmation
func Deploy(
	ctx context.Context,
	relayer txrelayer.TxRelayer,
	artifact *contracts.Artifact,
	from *accounts.Account,
	args ...interface{},
) (*Contract, error) {
	return DeployConfirmed(ctx, relayer, artifact, from, 1, args...)
}

// DeployConfirmed is Deploy waiting for the given number of confirmations
func DeployConfirmed(
	ctx context.Context,
	relayer txrelayer.TxRelayer,
	artifact *contracts.Artifact,
	from *accounts.Account,
	confirmations uint64,
	args ...interface{},
) (*Contract, error) {
	input, err := artifact.DeployInput(args)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s deployment input: %w", artifact.ContractName, err)
	}

	txn := &ethgo.Transaction{Input: input}

	hash, err := send(relayer, txn, from)
	if err != nil {
		return nil, rejected(artifact.ContractName, "", ethgo.ZeroHash, err)
	}

	pending := &PendingTransaction{
		contract: artifact.ContractName,
		hash:     hash,
		relayer:  relayer,
	}

	receipt, err := pending.Wait(ctx, confirmations)
	if err != nil {
		return nil, err
	}

	if receipt.ContractAddress == ethgo.ZeroAddress {
		return nil, fmt.Errorf("deployment of %s returned no contract address", artifact.ContractName)
	}

	return &Contract{
		name:    artifact.ContractName,
		address: receipt.ContractAddress,
		abi:     artifact.Abi,
		relayer: relayer,
		receipt: receipt,
	}, nil
}

func (c *Contract) Name() string {
	return c.name
}

func (c *Contract) Address() ethgo.Address {
	return c.address
}

func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

// DeploymentReceipt returns the receipt of the creation transaction, nil for bound contracts
func (c *Contract) DeploymentReceipt() *ethgo.Receipt {
	return c.receipt
}

func (c *Contract) String() string {
	return fmt.Sprintf("%s@%s", c.name, c.address)
}

func (c *Contract) method(name string) (*abi.Method, error) {
	if c.abi == nil {
		return nil, fmt.Errorf("%s has no abi", c.name)
	}

	method := c.abi.GetMethod(name)
	if method == nil {
		return nil, fmt.Errorf("%s has no method '%s'", c.name, name)
	}

	return method, nil
}

// Transact sends a state changing call of the method. The returned pending
// transaction has to be waited on to learn whether it was applied.
func (c *Contract) Transact(name string, from *accounts.Account, args ...interface{}) (*PendingTransaction, error) {
	method, err := c.method(name)
	if err != nil {
		return nil, err
	}

	input, err := method.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s.%s: %w", c.name, name, err)
	}

	to := c.address
	txn := &ethgo.Transaction{To: &to, Input: input}

	hash, err := send(c.relayer, txn, from)
	if err != nil {
		return nil, rejected(c.name, name, ethgo.ZeroHash, err)
	}

	return &PendingTransaction{
		contract: c.name,
		method:   name,
		hash:     hash,
		relayer:  c.relayer,
		from:     from.Address(),
		to:       &to,
		input:    input,
	}, nil
}

// Call executes a read-only method and returns its decoded outputs
func (c *Contract) Call(name string, args ...interface{}) (map[string]interface{}, error) {
	method, err := c.method(name)
	if err != nil {
		return nil, err
	}

	input, err := method.Encode(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s.%s: %w", c.name, name, err)
	}

	response, err := c.relayer.Call(ethgo.ZeroAddress, c.address, input)
	if err != nil {
		if txrelayer.IsRevert(err) {
			return nil, rejected(c.name, name, ethgo.ZeroHash, err)
		}

		return nil, fmt.Errorf("failed to call %s.%s: %w", c.name, name, err)
	}

	raw, err := hex.DecodeHex(response)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s response: %w", c.name, name, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response from %s.%s, is the contract deployed at %s?", c.name, name, c.address)
	}

	outputs, err := method.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s outputs: %w", c.name, name, err)
	}

	return outputs, nil
}

// CallAddress calls a method returning a single address
func (c *Contract) CallAddress(name string, args ...interface{}) (ethgo.Address, error) {
	outputs, err := c.Call(name, args...)
	if err != nil {
		return ethgo.ZeroAddress, err
	}

	addr, ok := outputs["0"].(ethgo.Address)
	if !ok {
		return ethgo.ZeroAddress, fmt.Errorf("%s.%s did not return an address", c.name, name)
	}

	return addr, nil
}

// CallBigInt calls a method returning a single integer
func (c *Contract) CallBigInt(name string, args ...interface{}) (*big.Int, error) {
	outputs, err := c.Call(name, args...)
	if err != nil {
		return nil, err
	}

	value, ok := outputs["0"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s did not return an integer", c.name, name)
	}

	return value, nil
}

// CallBool calls a method returning a single boolean
func (c *Contract) CallBool(name string, args ...interface{}) (bool, error) {
	outputs, err := c.Call(name, args...)
	if err != nil {
		return false, err
	}

	value, ok := outputs["0"].(bool)
	if !ok {
		return false, fmt.Errorf("%s.%s did not return a boolean", c.name, name)
	}

	return value, nil
}

// PendingTransaction is a submitted transaction which may not be included yet
type PendingTransaction struct {
	contract string
	method   string
	hash     ethgo.Hash
	relayer  txrelayer.TxRelayer

	// replayed on failure to recover the revert reason
	from  ethgo.Address
	to    *ethgo.Address
	input []byte
}

func (p *PendingTransaction) Hash() ethgo.Hash {
	return p.hash
}

// Wait blocks until the transaction has the given number of confirmations and
// fails with a TransactionRejectedError when it was reverted
func (p *PendingTransaction) Wait(ctx context.Context, confirmations uint64) (*ethgo.Receipt, error) {
	receipt, err := p.relayer.WaitForReceipt(ctx, p.hash, confirmations)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s: %w", p.hash, err)
	}

	if receipt.Status != receiptSuccess {
		return nil, &TransactionRejectedError{
			Contract: p.contract,
			Method:   p.method,
			TxHash:   p.hash,
			Reason:   p.revertReason(),
		}
	}

	return receipt, nil
}

func (p *PendingTransaction) revertReason() string {
	const unknown = "execution reverted"

	if p.to == nil {
		return unknown
	}

	_, err := p.relayer.Call(p.from, *p.to, p.input)
	if err == nil {
		return unknown
	}

	return revertReason(err)
}

func send(relayer txrelayer.TxRelayer, txn *ethgo.Transaction, from *accounts.Account) (ethgo.Hash, error) {
	if from == nil {
		return ethgo.ZeroHash, accounts.ErrNoAccount
	}

	if from.IsNodeManaged() {
		txn.From = from.Address()

		return relayer.SendTransactionLocal(txn)
	}

	return relayer.SendTransaction(txn, from.Key())
}

// rejected converts node revert errors into a TransactionRejectedError and
// wraps everything else
func rejected(contract, method string, hash ethgo.Hash, err error) error {
	if errors.Is(err, ErrTransactionRejected) || !txrelayer.IsRevert(err) {
		if method == "" {
			return fmt.Errorf("failed to send %s transaction: %w", contract, err)
		}

		return fmt.Errorf("failed to send %s.%s transaction: %w", contract, method, err)
	}

	return &TransactionRejectedError{
		Contract: contract,
		Method:   method,
		TxHash:   hash,
		Reason:   revertReason(err),
	}
}

func revertReason(err error) string {
	msg := err.Error()

	for _, prefix := range []string{
		"execution reverted: ",
		"VM Exception while processing transaction: revert ",
		"VM Exception while processing transaction: ",
	} {
		if i := strings.Index(msg, prefix); i >= 0 {
			return strings.TrimSpace(msg[i+len(prefix):])
		}
	}

	return msg
}
