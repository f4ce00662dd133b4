// main package for the speech MCP server and its command-line helpers.
package main

import (
	"context"
	"fmt"
	"os"
)

// Version is set at build time.
var Version = "dev"

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
