package main

import (
	"github.com/flsschain/flss/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
