package main

import (
	"github.com/alecthomas/kong"

	"github.com/tournauto/tournauto/cmd/tournauto/commands"
)

var version = "dev"

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("tournauto"),
		kong.Description("Daemon that automates participation in recurring tournament rounds."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&commands.Global{}, cli)
	ctx.FatalIfErrorf(err)
}
