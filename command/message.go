package command

import (
	"bytes"
	"fmt"
)

// MessageResult is a plain progress or status message
type MessageResult struct {
	Message string `json:"message"`
}

func (r MessageResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("%s\n", r.Message))

	return buffer.String()
}
