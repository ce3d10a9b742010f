package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/session"
	"github.com/douhashi/soba/internal/tmux"
)

var openList bool

var openCmd = &cobra.Command{
	Use:   "open [<issue>]",
	Short: "Attach to the tmux session, or list issue windows",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openList, "list", false, "list issue windows instead of attaching")
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	if !tmux.Installed() {
		return fmt.Errorf("tmux is not installed")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := tmux.NewClient()
	sessions := session.NewManager(client, daemon.LockDir(stateDir()), cfg.Workflow.MaxPanes)
	name := session.SessionName(cfg.GitHub.Repository)
	if !client.HasSession(name) {
		return fmt.Errorf("no session %s; is the daemon running?", name)
	}

	if openList {
		windows, err := sessions.ListIssueWindows(name)
		if err != nil {
			return err
		}
		if len(windows) == 0 {
			fmt.Println("No issue windows")
			return nil
		}
		numbers := make([]int, 0, len(windows))
		for n := range windows {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		for _, n := range numbers {
			fmt.Printf("issue-%d\n", n)
		}
		return nil
	}

	if len(args) == 1 {
		number, err := strconv.Atoi(args[0])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		if _, ok, err := sessions.FindIssueWindow(name, number); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no window for issue #%d", number)
		}
	}

	return sessions.Attach(name)
}
