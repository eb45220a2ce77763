// ./main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/minhltv/possync/cmd"
	"github.com/minhltv/possync/internal/observability"
)

func main() {
	// Cancel the whole batch on SIGINT/SIGTERM so the browser session shuts
	// down cleanly and partial reports still get written.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
