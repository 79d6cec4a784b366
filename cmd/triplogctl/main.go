// Command triplogctl is the operator CLI of the transportation service:
// schema migrations, on-demand consolidation and development tokens.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
