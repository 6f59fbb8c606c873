package main

import (
	"os"

	"github.com/ioan45/open-my-files/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
