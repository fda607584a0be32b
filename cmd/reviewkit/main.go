package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"reviewkit/integrations/opener"
)

var version = "dev"

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("reviewkit"),
		kong.Description("Decide when to ask for an app store review and record the answer"),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	rt := &Runtime{
		Out:    os.Stdout,
		In:     os.Stdin,
		Err:    os.Stderr,
		Opener: opener.NewSystem(slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}
	err := ctx.Run(&cli, rt)
	ctx.FatalIfErrorf(err)
}
