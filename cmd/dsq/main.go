// Command dsq compiles and runs datasync table queries.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/datasync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
