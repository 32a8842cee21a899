// Command kisgw is the Korea Investment & Securities gateway CLI.
package main

import (
	"os"

	"kis-gateway/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
