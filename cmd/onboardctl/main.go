package main

import (
	"fmt"
	"os"

	"github.com/onboardhub/engine/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersion(version, commit)
	if err := cli.NewRootCommand(cli.DefaultOpen).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
