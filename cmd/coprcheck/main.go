package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/coprcheck/coprcheck/pkg/cmd/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.NewCmdRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to exec coprcheck: %s\n", fmt.Sprintf("%+v", err))
		stop()
		os.Exit(1)
	}
}
