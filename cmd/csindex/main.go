// Command csindex manages CloudSearch domains for declared indexes and
// serves the search API.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
