package main

import (
	"os"

	"github.com/dshills/vulnscan/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
