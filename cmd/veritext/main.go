package main

import (
	"os"

	"github.com/darved2305/VeriTextAI/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
