package main

import (
	"os"

	"github.com/lumipallolabs/linkpurge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
