// Command biostat runs the logistic regression and survival analyses.
package main

import (
	"os"

	"github.com/dexinGONG/biostat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
