package mocks

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/0xPolygon/token-farm/command/helper"
	"github.com/0xPolygon/token-farm/ledger"
)

type mockResult struct {
	Name     string `json:"name"`
	Contract string `json:"contract"`
	Address  string `json:"address"`
}

type mocksResult struct {
	Network string       `json:"network"`
	Mocks   []mockResult `json:"mocks"`
}

func newMocksResult(network string, deployed map[string]*ledger.Contract) *mocksResult {
	names := make([]string, 0, len(deployed))
	for name := range deployed {
		names = append(names, name)
	}

	sort.Strings(names)

	result := &mocksResult{Network: network, Mocks: make([]mockResult, 0, len(names))}

	for _, name := range names {
		result.Mocks = append(result.Mocks, mockResult{
			Name:     name,
			Contract: deployed[name].Name(),
			Address:  deployed[name].Address().String(),
		})
	}

	return result
}

func (r *mocksResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(helper.FormatTitle("mocks deployed on " + r.Network))

	rows := []string{"Name|Contract|Address"}
	for _, mock := range r.Mocks {
		rows = append(rows, fmt.Sprintf("%s|%s|%s", mock.Name, mock.Contract, mock.Address))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
