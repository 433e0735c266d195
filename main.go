package main

import (
	"os"

	"projectreview/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
