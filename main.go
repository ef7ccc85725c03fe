package main

import (
	"github.com/0xPolygon/token-farm/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
