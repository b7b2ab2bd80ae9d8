// ABOUTME: Entry point for the valhalla CLI
// ABOUTME: Command-line client for account sign-in and session management

package main

import (
	"fmt"
	"os"

	"github.com/aldavm/valhalla-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
