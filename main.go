package main

import (
	"os"

	"github.com/adalundhe/termbase/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
