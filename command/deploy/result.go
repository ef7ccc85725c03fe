package deploy

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/farm"
)

type allowedTokenResult struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	PriceFeed string `json:"priceFeed"`
}

type deployResult struct {
	Network         string               `json:"network"`
	Account         string               `json:"account"`
	DappToken       string               `json:"dappToken"`
	TokenFarm       string               `json:"tokenFarm"`
	FarmBalance     string               `json:"farmBalance"`
	AllowedTokens   []allowedTokenResult `json:"allowedTokens"`
	Verified        bool                 `json:"verified"`
	Recorded        bool                 `json:"recorded"`
	FrontendUpdated bool                 `json:"frontendUpdated"`
}

func newDeployResult(network string, res *farm.Result) *deployResult {
	result := &deployResult{
		Network:         network,
		Account:         res.Account.Address().String(),
		DappToken:       res.DappToken.Address().String(),
		TokenFarm:       res.TokenFarm.Address().String(),
		FarmBalance:     res.FarmBalance.String(),
		AllowedTokens:   make([]allowedTokenResult, 0, len(res.AllowedTokens)),
		Verified:        res.Verified,
		Recorded:        res.Recorded,
		FrontendUpdated: res.FrontendSync,
	}

	for _, allowed := range res.AllowedTokens {
		result.AllowedTokens = append(result.AllowedTokens, allowedTokenResult{
			Name:      allowed.Token.Name(),
			Address:   allowed.Token.Address().String(),
			PriceFeed: allowed.PriceFeed.Address().String(),
		})
	}

	return result
}

func (r *deployResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(helper.FormatTitle("token farm deployment"))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Network|%s", r.Network),
		fmt.Sprintf("Account|%s", r.Account),
		fmt.Sprintf("DappToken (address)|%s", r.DappToken),
		fmt.Sprintf("TokenFarm (address)|%s", r.TokenFarm),
		fmt.Sprintf("TokenFarm (balance)|%s", r.FarmBalance),
		fmt.Sprintf("Source verified|%t", r.Verified),
		fmt.Sprintf("Deployment recorded|%t", r.Recorded),
		fmt.Sprintf("Frontend updated|%t", r.FrontendUpdated),
	}))
	buffer.WriteString("\n")

	buffer.WriteString(helper.FormatTitle("allowed tokens"))

	rows := []string{"Token|Address|Price feed"}
	for _, allowed := range r.AllowedTokens {
		rows = append(rows, fmt.Sprintf("%s|%s|%s", allowed.Name, allowed.Address, allowed.PriceFeed))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
