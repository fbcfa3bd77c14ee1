// Command homeworq is the CLI bootstrapper: it wires the Task Registry,
// Store, and Engine, then either serves the control-plane HTTP API or
// runs one-off job/task operations against a running instance.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
