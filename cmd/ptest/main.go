// Command ptest runs hardware-in-the-loop cases against satellite flight
// controllers.
package main

import (
	"fmt"
	"os"

	"github.com/pan-ssds/ptest/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
