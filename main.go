package main

import (
	"os"

	"github.com/tkscode/jupyterlab/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
