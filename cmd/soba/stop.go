package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/daemon"
)

var (
	stopForce   bool
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := daemon.Stop(stateDir(), time.Duration(stopTimeout)*time.Second, stopForce)
		if err != nil {
			return err
		}
		fmt.Println("Daemon stopped")
		return nil
	},
}

func init() {
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "escalate to SIGKILL after the timeout")
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "seconds to wait for graceful shutdown")
	rootCmd.AddCommand(stopCmd)
}
