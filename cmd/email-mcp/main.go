package main

import (
	"os"

	"github.com/tianpeijun/email-mcp/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
