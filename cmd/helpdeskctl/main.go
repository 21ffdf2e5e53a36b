package main

import (
	"fmt"
	"os"

	"github.com/spec-kit/helpdesk/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(cli.DefaultOpener).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
