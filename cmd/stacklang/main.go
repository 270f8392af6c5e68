package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/zurustar/stacklang/pkg/app"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	application := app.New(app.WithStdio(stdin, stdout, stderr))
	if err := application.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprintln(stderr, "Run 'stacklang --help' for usage.")
			return exitUsage
		}
		return exitError
	}
	return exitOK
}
