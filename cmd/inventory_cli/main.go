// Package main implements the command line client for the inventory service.
package main

import (
	"os"

	"github.com/abgdnv/goinventory/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
