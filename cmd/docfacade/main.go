// docfacade is a command line client for a document store, either a local store file or a
// docfacade server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mazzegi/docfacade/env"
	"github.com/mazzegi/docfacade/errorx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	cmd := newRootCmd(env.Glob(), os.Stdout)
	errorx.ExitWhen(cmd.ExecuteContext(ctx))
}
