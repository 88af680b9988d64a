// Command msgharness runs message-broker integration tests.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/msgharness/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "msgharness: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
