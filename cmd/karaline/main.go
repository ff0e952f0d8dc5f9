// Package main provides the entry point for the karaline CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}
