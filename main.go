package main

import (
	"os"

	"github.com/confidant-ai/confidant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
