// Command viabctl checks FTTH viability from the terminal against the
// viability API and keeps a short local search history.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(os.Stdout)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errNoCoordinate) {
			fmt.Fprintln(os.Stderr, "erro:", err)
		}
		os.Exit(1)
	}
}
