// soba is an autonomous GitHub issue workflow orchestrator. It drives
// issues through plan, implement, review, and revise phases by flipping
// workflow labels and launching an AI assistant in tmux panes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
