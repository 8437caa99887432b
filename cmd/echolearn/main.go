package main

import (
	"os"

	"github.com/echolearn/server/cmd/echolearn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
