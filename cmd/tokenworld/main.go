// Command tokenworld drives a token ledger from named identities and
// symbols. See `tokenworld --help`.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tokenworld/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
