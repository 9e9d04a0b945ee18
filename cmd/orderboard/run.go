package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// stopGrace bounds the whole shutdown sequence. The HTTP server has its own
// configurable timeout inside it.
const stopGrace = 30 * time.Second

type runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

// run starts the board, blocks until a signal or a fatal component error and
// stops it. It returns the process exit code.
func run(ctx context.Context, app runtime) int {
	return runWithOutput(ctx, app, os.Stderr)
}

func runWithOutput(ctx context.Context, app runtime, stderr io.Writer) int {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(stderr, "orderboard: start: %v\n", err)
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(stderr, "orderboard: stop: %v\n", err)
		return 1
	}
	return 0
}
