package main

import (
	"os"

	"github.com/TUNEZILLA-zz/polygot-code-sampler-sub002/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
