// Package main is the entry point for cloudmanager.
package main

import (
	"fmt"
	"os"

	"github.com/javanstorm/cloudmanager/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
