// Command prestotype parses and formats Presto and Trino type signatures and
// inspects table definitions on a coordinator.
package main

import (
	"os"

	"github.com/ethanyzhang/prestotype/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
