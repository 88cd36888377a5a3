package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookforge/cmd/bookforge/commands"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("bookforge"),
		kong.Description("Generate, expand, compile, and publish books from markdown outlines."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&commands.Global{}, cli)
	ctx.FatalIfErrorf(err)
}
