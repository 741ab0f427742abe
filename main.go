package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/stilltrace/cmd"
)

func main() {
	err := cmd.NewApp().Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(cmd.ExitCode(err))
}
