package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
