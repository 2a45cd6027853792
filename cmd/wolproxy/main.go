package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/wolproxy/cmd/wolproxy/commands"
	perrors "git.home.luguber.info/inful/wolproxy/internal/errors"
	"git.home.luguber.info/inful/wolproxy/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("wolproxy"),
		kong.Description("Wake-on-LAN standby proxy for game servers"),
		kong.Vars{"version": fmt.Sprintf("wolproxy %s (%s, built %s)", version.Version, version.GitCommit, version.BuildTime)},
		kong.UsageOnError(),
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, cli); err != nil {
		adapter := perrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}
