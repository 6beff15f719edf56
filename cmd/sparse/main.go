// Command sparse inspects and edits JSON/YAML documents linked by `$ref`
// pointers.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
