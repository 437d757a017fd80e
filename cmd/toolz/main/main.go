package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/choopsit/toolz/cmd/toolz"
	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/style"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := toolz.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		p := style.NewPrinter(os.Stderr)
		p.Error("%s", errors.Message(err))
		os.Exit(errors.ExitCode(err))
	}
}
