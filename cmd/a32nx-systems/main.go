package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wpine215/a32nx/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
