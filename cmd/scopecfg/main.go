// Package main is the entry point for the scopecfg CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/scopecfg/cmd/scopecfg/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := app.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
