// Command buscador indexes documents and database values and searches them.
package main

import (
	"os"

	"github.com/Aman-CERP/buscador/cmd/buscador/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
