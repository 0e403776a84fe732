// Command staycheck runs black-box booking checks against a hotel site.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/staycheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
