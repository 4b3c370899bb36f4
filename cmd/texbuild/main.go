package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuild/cmd/texbuild/commands"
	ferrors "git.home.luguber.info/inful/texbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuild/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("texbuild"),
		kong.Description("Compile TeX and literate R documents to PDF."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Context: ctx, Out: os.Stdout}, cli)
	stop()
	os.Exit(exitCode(cli.Verbose, err))
}

// exitCode reports err and maps it to the process exit status. Compile
// failures were already shown to the user and are not printed again.
func exitCode(verbose bool, err error) int {
	adapter := ferrors.NewCLIErrorAdapter(verbose, slog.Default())
	var shown *commands.ReportedError
	if errors.As(err, &shown) {
		return adapter.ExitCodeFor(shown.Err)
	}
	return adapter.Report(os.Stderr, err)
}
