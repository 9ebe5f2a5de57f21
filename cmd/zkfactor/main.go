// Command zkfactor drives private invoice factoring on Aleo from the command
// line and serves the same operations over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/R3E-Network/zkfactor/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
