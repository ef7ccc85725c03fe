// Package ledgertest provides an in-memory ledger implementing the transaction
// relayer, with simple state machines for the token, farm and mock contracts.
package ledgertest

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/umbracle/ethgo"
	"github.com/umbracle/ethgo/abi"

	"github.com/0xPolygon/token-farm/accounts"
	"github.com/0xPolygon/token-farm/contracts"
	"github.com/0xPolygon/token-farm/helper/hex"
	"github.com/0xPolygon/token-farm/txrelayer"
)

const (
	// ChainID reported by the in-memory ledger
	ChainID = 1337

	numAccounts     = 10
	bytecodePrefix  = "ledgertest:"
	gasPerOperation = 21000
)

var _ txrelayer.TxRelayer = (*Chain)(nil)

type instance struct {
	typ   *contracts.ContractType
	state model
}

// Chain is an automining in-memory ledger. Every transaction is included in
// its own block; reverted transactions are included with a failed status.
type Chain struct {
	lock sync.Mutex

	accounts  []ethgo.Address
	block     uint64
	txCount   uint64
	instances map[ethgo.Address]*instance
	receipts  map[ethgo.Hash]*ethgo.Receipt
	deployed  map[string]int
	awaited   map[ethgo.Hash]uint64

	// RejectReverts makes the ledger refuse reverting transactions at
	// submission, as a node estimating gas does, instead of mining them
	RejectReverts bool

	// Supplies overrides the initial supply of token contracts by contract name
	Supplies map[string]*big.Int
}

// NewChain creates an empty ledger with unlocked development accounts
func NewChain() *Chain {
	c := &Chain{
		instances: map[ethgo.Address]*instance{},
		receipts:  map[ethgo.Hash]*ethgo.Receipt{},
		deployed:  map[string]int{},
		awaited:   map[ethgo.Hash]uint64{},
	}

	for i := 0; i < numAccounts; i++ {
		c.accounts = append(c.accounts, ethgo.Address{0xac, 0x00, byte(i + 1)})
	}

	return c
}

// Account returns the node managed development account at the index
func (c *Chain) Account(index int) *accounts.Account {
	return accounts.NewNodeAccount(c.accounts[index])
}

// Deployments returns how many instances of the contract were created
func (c *Chain) Deployments(name string) int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.deployed[name]
}

// TotalDeployments returns how many contracts were created
func (c *Chain) TotalDeployments() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	total := 0
	for _, n := range c.deployed {
		total += n
	}

	return total
}

// Artifact returns the in-memory artifact of the contract type
func Artifact(typ *contracts.ContractType) *contracts.Artifact {
	return &contracts.Artifact{
		ContractName: typ.Name,
		Abi:          typ.Abi,
		Bytecode:     []byte(bytecodePrefix + typ.Name + ":"),
	}
}

// NewArtifactStore returns a store holding the artifacts of every known contract
func NewArtifactStore() *contracts.Store {
	store := contracts.NewStore("")

	for _, typ := range append(contracts.Types(), contracts.MockERC20) {
		store.Add(Artifact(typ))
	}

	return store
}

func (c *Chain) Accounts() ([]ethgo.Address, error) {
	return append([]ethgo.Address{}, c.accounts...), nil
}

func (c *Chain) ChainID() (*big.Int, error) {
	return big.NewInt(ChainID), nil
}

// Call executes a read-only message on a copy of the target contract state
func (c *Chain) Call(from ethgo.Address, to ethgo.Address, input []byte) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	inst, ok := c.instances[to]
	if !ok {
		return "0x", nil
	}

	output, _, err := c.execute(inst, from, input)
	if err != nil {
		return "", err
	}

	return hex.EncodeToHex(output), nil
}

// SendTransaction applies the transaction from the address of the key
func (c *Chain) SendTransaction(txn *ethgo.Transaction, key ethgo.Key) (ethgo.Hash, error) {
	txn.From = key.Address()

	return c.apply(txn)
}

// SendTransactionLocal applies the transaction from a development account
func (c *Chain) SendTransactionLocal(txn *ethgo.Transaction) (ethgo.Hash, error) {
	if txn.From == ethgo.ZeroAddress {
		txn.From = c.accounts[0]
	}

	if !c.isDevelopmentAccount(txn.From) {
		return ethgo.ZeroHash, fmt.Errorf("sender account %s not recognized", txn.From)
	}

	return c.apply(txn)
}

func (c *Chain) WaitForReceipt(ctx context.Context, hash ethgo.Hash, confirmations uint64) (*ethgo.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("receipt for %s not found", hash)
	}

	c.awaited[hash] = confirmations

	return receipt, nil
}

// Awaited returns the confirmations last waited for on the transaction
func (c *Chain) Awaited(hash ethgo.Hash) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.awaited[hash]
}

func (c *Chain) isDevelopmentAccount(addr ethgo.Address) bool {
	for _, account := range c.accounts {
		if account == addr {
			return true
		}
	}

	return false
}

func (c *Chain) apply(txn *ethgo.Transaction) (ethgo.Hash, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var (
		contractAddress ethgo.Address
		commit          func()
		err             error
	)

	if txn.To == nil {
		contractAddress, commit, err = c.create(txn.From, txn.Input)
	} else {
		commit, err = c.invoke(txn.From, *txn.To, txn.Input)
	}

	if err != nil && c.RejectReverts {
		return ethgo.ZeroHash, err
	}

	c.txCount++
	c.block++

	var hash ethgo.Hash

	binary.BigEndian.PutUint64(hash[24:], c.txCount)

	receipt := &ethgo.Receipt{
		TransactionHash: hash,
		BlockNumber:     c.block,
		GasUsed:         gasPerOperation,
		Status:          1,
	}

	if err != nil {
		receipt.Status = 0
	} else {
		commit()

		receipt.ContractAddress = contractAddress
	}

	c.receipts[hash] = receipt

	return hash, nil
}

func (c *Chain) create(from ethgo.Address, input []byte) (ethgo.Address, func(), error) {
	typ, args, err := decodeCreation(input)
	if err != nil {
		return ethgo.ZeroAddress, nil, err
	}

	state, err := newModel(typ, from, args, c.Supplies[typ.Name])
	if err != nil {
		return ethgo.ZeroAddress, nil, fmt.Errorf("execution reverted: %w", err)
	}

	var addr ethgo.Address

	addr[0] = 0xc0
	binary.BigEndian.PutUint64(addr[12:], c.txCount+1)

	return addr, func() {
		c.instances[addr] = &instance{typ: typ, state: state}
		c.deployed[typ.Name]++
	}, nil
}

func (c *Chain) invoke(from, to ethgo.Address, input []byte) (func(), error) {
	inst, ok := c.instances[to]
	if !ok {
		// plain value transfer to an account
		return func() {}, nil
	}

	_, state, err := c.execute(inst, from, input)
	if err != nil {
		return nil, err
	}

	return func() { inst.state = state }, nil
}

// execute runs the call on a copy of the contract state and returns the
// encoded outputs with the resulting state
func (c *Chain) execute(inst *instance, from ethgo.Address, input []byte) ([]byte, model, error) {
	method, args, err := decodeCall(inst.typ.Abi, input)
	if err != nil {
		return nil, nil, err
	}

	state := inst.state.clone()

	outputs, err := state.execute(from, method.Name, args)
	if err != nil {
		return nil, nil, fmt.Errorf("execution reverted: %w", err)
	}

	if method.Outputs == nil || len(method.Outputs.TupleElems()) == 0 {
		return nil, state, nil
	}

	encoded, err := abi.Encode(outputs, method.Outputs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s outputs: %w", method.Name, err)
	}

	return encoded, state, nil
}

func decodeCall(contractABI *abi.ABI, input []byte) (*abi.Method, map[string]interface{}, error) {
	if len(input) < 4 {
		return nil, nil, errors.New("execution reverted: missing method selector")
	}

	for _, method := range contractABI.Methods {
		if !bytes.Equal(method.ID(), input[:4]) {
			continue
		}

		args, err := decodeArgs(method.Inputs, input[4:])
		if err != nil {
			return nil, nil, err
		}

		return method, args, nil
	}

	return nil, nil, fmt.Errorf("execution reverted: unknown selector %s", hex.EncodeToHex(input[:4]))
}

func decodeCreation(input []byte) (*contracts.ContractType, map[string]interface{}, error) {
	for _, typ := range append(contracts.Types(), contracts.MockERC20) {
		bytecode := Artifact(typ).Bytecode
		if !bytes.HasPrefix(input, bytecode) {
			continue
		}

		var ctorInputs *abi.Type
		if typ.Abi.Constructor != nil {
			ctorInputs = typ.Abi.Constructor.Inputs
		}

		args, err := decodeArgs(ctorInputs, input[len(bytecode):])
		if err != nil {
			return nil, nil, err
		}

		return typ, args, nil
	}

	return nil, nil, errors.New("execution reverted: unknown bytecode")
}

func decodeArgs(inputs *abi.Type, data []byte) (map[string]interface{}, error) {
	if inputs == nil || len(inputs.TupleElems()) == 0 {
		return map[string]interface{}{}, nil
	}

	decoded, err := inputs.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("execution reverted: invalid arguments: %w", err)
	}

	args, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, errors.New("execution reverted: invalid arguments")
	}

	return args, nil
}
