// Package main is the entry point for anistream.
package main

import (
	"github.com/anisan-cli/anistream/cmd"
	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
