package version

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/token-farm/command/helper"
)

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Branch    string `json:"branch"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func (r *VersionResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(helper.FormatTitle("farmctl"))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Version|%s", r.Version),
		fmt.Sprintf("Commit|%s", r.Commit),
		fmt.Sprintf("Branch|%s", r.Branch),
		fmt.Sprintf("Built|%s", r.BuildTime),
		fmt.Sprintf("Go|%s %s", r.GoVersion, r.Platform),
	}))

	return buffer.String()
}
