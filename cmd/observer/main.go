package main

import (
	"os"

	"github.com/raysh454/observer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
