package accounts

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/token-farm/command/helper"
)

type accountResult struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func (r *accountResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(helper.FormatTitle("account stored"))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("ID|%s", r.ID),
		fmt.Sprintf("Address|%s", r.Address),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
