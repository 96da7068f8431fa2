// Command matchcore is the operator CLI for the matchcore engine: it
// compiles CUE rulesets to IR, validates and runs matches, and replays or
// traces persisted event logs.
package main

import (
	"fmt"
	"os"

	"github.com/teapot-games/matchcore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
