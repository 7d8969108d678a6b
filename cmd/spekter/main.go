package main

import (
	"os"

	"github.com/zccoffin/Spekter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
