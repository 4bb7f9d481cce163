// Command aces runs cohort extraction over a per-subject event-stream
// predicate table according to a declarative window-tree task
// configuration. See internal/cli for the command tree.
package main

import (
	"fmt"
	"os"

	"github.com/n0roo/aces/internal/cli"
	"github.com/n0roo/aces/internal/xerrors"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "aces:", err)
		os.Exit(xerrors.ExitCode(err))
	}
}
