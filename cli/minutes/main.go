package main

import (
	"os"

	minutescmder "github.com/papercomputeco/minutes/cmd/minutes"
)

func main() {
	cmd := minutescmder.NewMinutesCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
