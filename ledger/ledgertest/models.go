package ledgertest

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/contracts"
)

// contract state machines are executed on a copy and committed on success,
// so a reverted transaction never leaves a partial state change behind
type model interface {
	execute(from ethgo.Address, method string, args map[string]interface{}) ([]interface{}, error)
	clone() model
}

var (
	errOwnable      = errors.New("Ownable: caller is not the owner")
	errUnsupported  = errors.New("not supported by the in-memory ledger")
	defaultSupply   = new(big.Int).Mul(big.NewInt(1_000_000), ethgo.Ether(1))
	linkTokenSupply = new(big.Int).Mul(big.NewInt(1_000_000_000), ethgo.Ether(1))
)

// newModel creates the state of a fresh instance, supply overrides the
// initial supply of token models when set
func newModel(typ *contracts.ContractType, deployer ethgo.Address,
	args map[string]interface{}, supply *big.Int) (model, error) {
	supplyOr := func(fallback *big.Int) *big.Int {
		if supply != nil {
			return supply
		}

		return fallback
	}

	switch typ {
	case contracts.DappToken:
		return newERC20("Dapp Token", "DAPP", deployer, supplyOr(defaultSupply)), nil
	case contracts.MockDAI:
		return newERC20("Mock DAI", "DAI", deployer, supplyOr(defaultSupply)), nil
	case contracts.MockWETH:
		return newERC20("Mock WETH", "WETH", deployer, supplyOr(defaultSupply)), nil
	case contracts.MockERC20:
		return newERC20("Mock ERC20", "MERC", deployer, supplyOr(defaultSupply)), nil
	case contracts.LinkToken:
		return newERC20("ChainLink Token", "LINK", deployer, supplyOr(linkTokenSupply)), nil
	case contracts.TokenFarm:
		dappToken, ok := args["dappTokenAddress"].(ethgo.Address)
		if !ok {
			return nil, errors.New("missing dapp token address")
		}

		return &farm{
			owner:      deployer,
			dappToken:  dappToken,
			priceFeeds: map[ethgo.Address]ethgo.Address{},
		}, nil
	case contracts.MockV3Aggregator:
		decimals, ok := args["decimals"].(uint8)
		if !ok {
			return nil, errors.New("missing decimals")
		}

		answer, ok := args["initialAnswer"].(*big.Int)
		if !ok {
			return nil, errors.New("missing initial answer")
		}

		return &aggregator{decimals: decimals, answer: new(big.Int).Set(answer), round: 1}, nil
	case contracts.VRFCoordinatorMock:
		link, ok := args["linkAddress"].(ethgo.Address)
		if !ok {
			return nil, errors.New("missing link address")
		}

		return &vrfCoordinator{link: link}, nil
	default:
		return nil, fmt.Errorf("no in-memory model for %s", typ.Name)
	}
}

type erc20 struct {
	name        string
	symbol      string
	totalSupply *big.Int
	balances    map[ethgo.Address]*big.Int
	allowances  map[ethgo.Address]map[ethgo.Address]*big.Int
}

func newERC20(name, symbol string, deployer ethgo.Address, supply *big.Int) *erc20 {
	return &erc20{
		name:        name,
		symbol:      symbol,
		totalSupply: new(big.Int).Set(supply),
		balances:    map[ethgo.Address]*big.Int{deployer: new(big.Int).Set(supply)},
		allowances:  map[ethgo.Address]map[ethgo.Address]*big.Int{},
	}
}

func (e *erc20) clone() model {
	c := &erc20{
		name:        e.name,
		symbol:      e.symbol,
		totalSupply: new(big.Int).Set(e.totalSupply),
		balances:    make(map[ethgo.Address]*big.Int, len(e.balances)),
		allowances:  make(map[ethgo.Address]map[ethgo.Address]*big.Int, len(e.allowances)),
	}

	for k, v := range e.balances {
		c.balances[k] = new(big.Int).Set(v)
	}

	for owner, spenders := range e.allowances {
		c.allowances[owner] = make(map[ethgo.Address]*big.Int, len(spenders))
		for spender, v := range spenders {
			c.allowances[owner][spender] = new(big.Int).Set(v)
		}
	}

	return c
}

func (e *erc20) balanceOf(addr ethgo.Address) *big.Int {
	if balance, ok := e.balances[addr]; ok {
		return balance
	}

	return big.NewInt(0)
}

func (e *erc20) allowance(owner, spender ethgo.Address) *big.Int {
	if value, ok := e.allowances[owner][spender]; ok {
		return value
	}

	return big.NewInt(0)
}

func (e *erc20) transfer(from, to ethgo.Address, amount *big.Int) error {
	if to == ethgo.ZeroAddress {
		return errors.New("ERC20: transfer to the zero address")
	}

	balance := e.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return errors.New("ERC20: transfer amount exceeds balance")
	}

	e.balances[from] = new(big.Int).Sub(balance, amount)
	e.balances[to] = new(big.Int).Add(e.balanceOf(to), amount)

	return nil
}

func (e *erc20) execute(from ethgo.Address, method string, args map[string]interface{}) ([]interface{}, error) {
	switch method {
	case "name":
		return []interface{}{e.name}, nil
	case "symbol":
		return []interface{}{e.symbol}, nil
	case "decimals":
		return []interface{}{uint8(18)}, nil
	case "totalSupply":
		return []interface{}{e.totalSupply}, nil
	case "balanceOf":
		return []interface{}{e.balanceOf(args["account"].(ethgo.Address))}, nil
	case "allowance":
		return []interface{}{e.allowance(args["owner"].(ethgo.Address), args["spender"].(ethgo.Address))}, nil
	case "transfer":
		if err := e.transfer(from, args["recipient"].(ethgo.Address), args["amount"].(*big.Int)); err != nil {
			return nil, err
		}

		return []interface{}{true}, nil
	case "transferAndCall":
		if err := e.transfer(from, args["to"].(ethgo.Address), args["value"].(*big.Int)); err != nil {
			return nil, err
		}

		return []interface{}{true}, nil
	case "approve":
		spender := args["spender"].(ethgo.Address)
		if e.allowances[from] == nil {
			e.allowances[from] = map[ethgo.Address]*big.Int{}
		}

		e.allowances[from][spender] = new(big.Int).Set(args["amount"].(*big.Int))

		return []interface{}{true}, nil
	case "transferFrom":
		sender := args["sender"].(ethgo.Address)
		amount := args["amount"].(*big.Int)

		allowed := e.allowance(sender, from)
		if allowed.Cmp(amount) < 0 {
			return nil, errors.New("ERC20: transfer amount exceeds allowance")
		}

		if err := e.transfer(sender, args["recipient"].(ethgo.Address), amount); err != nil {
			return nil, err
		}

		e.allowances[sender][from] = new(big.Int).Sub(allowed, amount)

		return []interface{}{true}, nil
	default:
		return nil, errUnsupported
	}
}

type farm struct {
	owner         ethgo.Address
	dappToken     ethgo.Address
	allowedTokens []ethgo.Address
	priceFeeds    map[ethgo.Address]ethgo.Address
}

func (f *farm) clone() model {
	c := &farm{
		owner:         f.owner,
		dappToken:     f.dappToken,
		allowedTokens: append([]ethgo.Address{}, f.allowedTokens...),
		priceFeeds:    make(map[ethgo.Address]ethgo.Address, len(f.priceFeeds)),
	}

	for k, v := range f.priceFeeds {
		c.priceFeeds[k] = v
	}

	return c
}

func (f *farm) isAllowed(token ethgo.Address) bool {
	for _, allowed := range f.allowedTokens {
		if allowed == token {
			return true
		}
	}

	return false
}

func (f *farm) execute(from ethgo.Address, method string, args map[string]interface{}) ([]interface{}, error) {
	switch method {
	case "owner":
		return []interface{}{f.owner}, nil
	case "dappToken":
		return []interface{}{f.dappToken}, nil
	case "addAllowedToken":
		if from != f.owner {
			return nil, errOwnable
		}

		f.allowedTokens = append(f.allowedTokens, args["token"].(ethgo.Address))

		return nil, nil
	case "setPriceFeedContract":
		if from != f.owner {
			return nil, errOwnable
		}

		f.priceFeeds[args["token"].(ethgo.Address)] = args["priceFeed"].(ethgo.Address)

		return nil, nil
	case "allowedTokens":
		index := args["index"].(*big.Int)
		if !index.IsInt64() || index.Int64() < 0 || index.Int64() >= int64(len(f.allowedTokens)) {
			return nil, errors.New("index out of bounds")
		}

		return []interface{}{f.allowedTokens[index.Int64()]}, nil
	case "tokenPriceFeedMapping":
		return []interface{}{f.priceFeeds[args["token"].(ethgo.Address)]}, nil
	case "tokenIsAllowed":
		return []interface{}{f.isAllowed(args["token"].(ethgo.Address))}, nil
	case "stakingBalance", "getUserTotalValue":
		return []interface{}{big.NewInt(0)}, nil
	default:
		return nil, errUnsupported
	}
}

type aggregator struct {
	decimals uint8
	answer   *big.Int
	round    int64
}

func (a *aggregator) clone() model {
	return &aggregator{decimals: a.decimals, answer: new(big.Int).Set(a.answer), round: a.round}
}

func (a *aggregator) execute(_ ethgo.Address, method string, args map[string]interface{}) ([]interface{}, error) {
	switch method {
	case "decimals":
		return []interface{}{a.decimals}, nil
	case "description":
		return []interface{}{"v0.6/tests/MockV3Aggregator.sol"}, nil
	case "version":
		return []interface{}{big.NewInt(0)}, nil
	case "latestAnswer":
		return []interface{}{a.answer}, nil
	case "latestRoundData":
		round := big.NewInt(a.round)

		return []interface{}{round, a.answer, big.NewInt(0), big.NewInt(0), round}, nil
	case "updateAnswer":
		a.answer = new(big.Int).Set(args["answer"].(*big.Int))
		a.round++

		return nil, nil
	default:
		return nil, errUnsupported
	}
}

type vrfCoordinator struct {
	link ethgo.Address
}

func (v *vrfCoordinator) clone() model {
	return &vrfCoordinator{link: v.link}
}

func (v *vrfCoordinator) execute(_ ethgo.Address, method string, _ map[string]interface{}) ([]interface{}, error) {
	switch method {
	case "LINK":
		return []interface{}{v.link}, nil
	case "callBackWithRandomness":
		return nil, nil
	default:
		return nil, errUnsupported
	}
}
