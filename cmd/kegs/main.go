package main

import (
	"os"

	"github.com/arthur-debert/kegs/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
