// fraglog - arena server log reporter
//
// fraglog splits a server log into matches, reports kills per player and
// per cause for each match, and ranks players across completed matches.
package main

import (
	"os"

	"github.com/ccollicutt/fraglog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
