package main

import (
	"os"

	_ "github.com/lkarlslund/pathcost/modules/analyze"
	"github.com/lkarlslund/pathcost/modules/cli"
	_ "github.com/lkarlslund/pathcost/modules/frontend"
	_ "github.com/lkarlslund/pathcost/modules/persistence"
	"github.com/lkarlslund/pathcost/modules/ui"
)

func main() {
	err := cli.Run()

	if err != nil {
		ui.Error().Msg(err.Error())
		os.Exit(1)
	}
}
