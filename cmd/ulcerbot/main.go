package main

import (
	"os"

	"github.com/0xcro3dile/ulcerrag/cmd/ulcerbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
