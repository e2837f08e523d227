// Command elements resolves declaration documents into registered
// component types, serves the inspection API, and watches for new
// documents.
package main

import (
	"fmt"
	"os"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if elerrors.CodeOf(err) != "" {
			elerrors.PrintError(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		}
		os.Exit(1)
	}
}
