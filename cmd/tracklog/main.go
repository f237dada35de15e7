package main

import (
	"os"

	"github.com/raveheart1/tracklog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
