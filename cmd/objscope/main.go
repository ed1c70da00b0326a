// Command objscope builds C++ sources at -O0 and -O2 and compares the
// resulting object files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/objscope/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
