// Command vellum inspects table metadata and pages through tables using the
// vellum catalog, query builder and keyset pager.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vellum:", err)
		os.Exit(1)
	}
}
