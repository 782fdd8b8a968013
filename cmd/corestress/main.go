package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/corestress/corestress/pkg/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	err := cli.ExecuteWithVersion(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("[corestress]"), err)
	}
	os.Exit(cli.ExitCode(err))
}
