package main

import (
	"github.com/kinema-cli/kinema/cmd"
	"github.com/kinema-cli/kinema/config"
	"github.com/kinema-cli/kinema/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
