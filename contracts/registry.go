package contracts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/umbracle/ethgo/abi"
)

// ErrUnknownContract is returned when a logical contract name is not registered
var ErrUnknownContract = errors.New("unknown contract")

// Logical contract names, as used in the network configuration
const (
	EthUsdPriceFeed  = "eth_usd_price_feed"
	DaiUsdPriceFeed  = "dai_usd_price_feed"
	WethUsdPriceFeed = "weth_usd_price_feed"
	VRFCoordinator   = "vrf_coordinator"
	LinkTokenName    = "link_token"
	FauToken         = "fau_token"
	WethToken        = "weth_token"
)

// ContractType binds an artifact name to the ABI used to talk to its instances
type ContractType struct {
	Name string
	Abi  *abi.ABI
}

func (c *ContractType) String() string {
	return c.Name
}

var (
	DappToken          = &ContractType{Name: "DappToken", Abi: DappTokenABI}
	TokenFarm          = &ContractType{Name: "TokenFarm", Abi: TokenFarmABI}
	MockV3Aggregator   = &ContractType{Name: "MockV3Aggregator", Abi: MockV3AggregatorABI}
	VRFCoordinatorMock = &ContractType{Name: "VRFCoordinatorMock", Abi: VRFCoordinatorMockABI}
	LinkToken          = &ContractType{Name: "LinkToken", Abi: LinkTokenABI}
	MockDAI            = &ContractType{Name: "MockDAI", Abi: MockDAIABI}
	MockWETH           = &ContractType{Name: "MockWETH", Abi: MockWETHABI}
	MockERC20          = &ContractType{Name: "MockERC20", Abi: MockERC20ABI}
)

// registry maps logical names of auxiliary contracts to the type of their
// local mock. It is never mutated after init.
var registry = map[string]*ContractType{
	EthUsdPriceFeed:  MockV3Aggregator,
	DaiUsdPriceFeed:  MockV3Aggregator,
	WethUsdPriceFeed: MockV3Aggregator,
	VRFCoordinator:   VRFCoordinatorMock,
	LinkTokenName:    LinkToken,
	FauToken:         MockDAI,
	WethToken:        MockWETH,
}

// Lookup returns the contract type registered under the logical name
func Lookup(name string) (*ContractType, error) {
	typ, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownContract, name)
	}

	return typ, nil
}

// LogicalNames returns the registered logical names in lexical order
func LogicalNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Types returns every contract type that has to be present in the build directory
func Types() []*ContractType {
	return []*ContractType{
		DappToken, TokenFarm, MockV3Aggregator, VRFCoordinatorMock, LinkToken, MockDAI, MockWETH,
	}
}
