package main

import (
	"os"

	"adventure-server/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
