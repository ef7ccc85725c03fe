package contracts

import (
	"fmt"

	"github.com/umbracle/ethgo/abi"
)

var erc20Functions = []string{
	"function name() view returns (string)",
	"function symbol() view returns (string)",
	"function decimals() view returns (uint8)",
	"function totalSupply() view returns (uint256)",
	"function balanceOf(address account) view returns (uint256)",
	"function transfer(address recipient, uint256 amount) returns (bool)",
	"function allowance(address owner, address spender) view returns (uint256)",
	"function approve(address spender, uint256 amount) returns (bool)",
	"function transferFrom(address sender, address recipient, uint256 amount) returns (bool)",
}

var (
	// DappTokenABI is the ABI of the reward token
	DappTokenABI = mustNewABI("", erc20Functions)

	// TokenFarmABI is the ABI of the staking contract
	TokenFarmABI = mustNewABI("tuple(address dappTokenAddress)", []string{
		"function owner() view returns (address)",
		"function dappToken() view returns (address)",
		"function addAllowedToken(address token)",
		"function setPriceFeedContract(address token, address priceFeed)",
		"function allowedTokens(uint256 index) view returns (address)",
		"function tokenPriceFeedMapping(address token) view returns (address)",
		"function tokenIsAllowed(address token) view returns (bool)",
		"function stakingBalance(address token, address user) view returns (uint256)",
		"function stakeTokens(uint256 amount, address token)",
		"function unstakeTokens(address token)",
		"function issueTokens()",
		"function getUserTotalValue(address user) view returns (uint256)",
		"function getTokenValue(address token) view returns (uint256, uint256)",
	})

	// MockV3AggregatorABI is the ABI of the price feed mock
	MockV3AggregatorABI = mustNewABI("tuple(uint8 decimals, int256 initialAnswer)", []string{
		"function decimals() view returns (uint8)",
		"function description() view returns (string)",
		"function version() view returns (uint256)",
		"function latestAnswer() view returns (int256)",
		"function latestRoundData() view returns (uint80 roundId, int256 answer, uint256 startedAt, uint256 updatedAt, uint80 answeredInRound)",
		"function updateAnswer(int256 answer)",
	})

	// LinkTokenABI is the ABI of the LINK token mock
	LinkTokenABI = mustNewABI("", append([]string{
		"function transferAndCall(address to, uint256 value, bytes data) returns (bool)",
	}, erc20Functions...))

	// MockDAIABI is the ABI of the DAI (fau) token mock
	MockDAIABI = mustNewABI("", erc20Functions)

	// MockWETHABI is the ABI of the WETH token mock
	MockWETHABI = mustNewABI("", erc20Functions)

	// MockERC20ABI is the ABI of a generic token mock used in tests
	MockERC20ABI = mustNewABI("", erc20Functions)

	// VRFCoordinatorMockABI is the ABI of the VRF coordinator mock
	VRFCoordinatorMockABI = mustNewABI("tuple(address linkAddress)", []string{
		"function LINK() view returns (address)",
		"function callBackWithRandomness(bytes32 requestId, uint256 randomness, address consumerContract)",
	})
)

// mustNewABI builds an ABI from human readable function signatures and an
// optional constructor argument tuple
func mustNewABI(constructor string, functions []string) *abi.ABI {
	res, err := abi.NewABIFromList(functions)
	if err != nil {
		panic(fmt.Errorf("invalid abi: %w", err))
	}

	if constructor != "" {
		res.Constructor = &abi.Method{Inputs: abi.MustNewType(constructor)}
	}

	return res
}
