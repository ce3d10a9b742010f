package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/history"
)

var (
	statusLogLines int
	statusJSON     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and recent phase transitions",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLogLines, "log", 0, "show the last N phase transitions")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit status as JSON")
	rootCmd.AddCommand(statusCmd)
}

var (
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	dir := stateDir()
	pid := daemon.RunningPID(daemon.PIDPath(dir))
	record, recordErr := daemon.ReadStatus(daemon.StatusPath(dir))

	if statusJSON {
		out := map[string]interface{}{"running": pid != 0, "pid": pid}
		if recordErr == nil {
			out["status"] = record
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		printStatus(pid, record, recordErr)
		if statusLogLines > 0 {
			printTransitions(cmd, dir, statusLogLines)
		}
	}

	// Exit code mirrors daemon liveness for scripting.
	if pid == 0 {
		os.Exit(1)
	}
	return nil
}

func printStatus(pid int, record *daemon.StatusRecord, recordErr error) {
	if pid != 0 {
		fmt.Println(runningStyle.Render("● running"), fmt.Sprintf("(pid %d)", pid))
	} else {
		fmt.Println(stoppedStyle.Render("● stopped"))
	}
	if recordErr != nil {
		return
	}

	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label), value)
	}
	row("repository", record.Repository)
	row("mode", record.Mode)
	row("started", record.StartedAt.Format(time.RFC3339))
	row("last tick", record.LastTickAt.Format(time.RFC3339))
	row("ticks", fmt.Sprintf("%d", record.TicksCompleted))
	row("merged", fmt.Sprintf("%d", record.IssuesMerged))
	if record.CurrentIssue != 0 {
		row("current", fmt.Sprintf("issue #%d (%s)", record.CurrentIssue, record.CurrentPhase))
	}
	if record.LastError != "" {
		row("last error", errorStyle.Render(record.LastError))
	}
}

func printTransitions(cmd *cobra.Command, dir string, n int) {
	store, err := history.Open(daemon.HistoryPath(dir))
	if err != nil {
		fmt.Println(errorStyle.Render("history unavailable: " + err.Error()))
		return
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(cmd.Context(), n)
	if err != nil {
		fmt.Println(errorStyle.Render("history unavailable: " + err.Error()))
		return
	}
	if len(entries) == 0 {
		return
	}

	fmt.Println()
	for _, e := range entries {
		fmt.Printf("%s  #%-5d %-20s %s -> %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.IssueNumber, e.Phase, e.FromLabel, e.ToLabel)
	}
}
