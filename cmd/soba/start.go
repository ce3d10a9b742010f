package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/history"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/notify"
	"github.com/douhashi/soba/internal/session"
	"github.com/douhashi/soba/internal/tmux"
	"github.com/douhashi/soba/internal/workflow"
)

var (
	startDaemon bool
	startNoTmux bool
)

var startCmd = &cobra.Command{
	Use:   "start [<issue>]",
	Short: "Run the control loop, or one-shot a single issue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startDaemon, "daemon", false, "run in the background")
	startCmd.Flags().BoolVar(&startNoTmux, "no-tmux", false, "run phase commands directly instead of in tmux panes")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	dir := stateDir()
	if err := daemon.EnsureStateDir(dir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if startNoTmux {
		cfg.Workflow.UseTmux = false
	}

	if len(args) == 1 {
		number, err := strconv.Atoi(args[0])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid issue number %q", args[0])
		}
		return runOneShot(cmd, cfg, dir, number)
	}

	if startDaemon && !daemon.IsDaemonChild() {
		childArgs := []string{"start", "--daemon", "--state-dir", dir}
		if startNoTmux {
			childArgs = append(childArgs, "--no-tmux")
		}
		pid, err := daemon.SpawnBackground(dir, childArgs)
		if err != nil {
			return err
		}
		fmt.Printf("Daemon started (pid %d), logs at %s\n", pid, daemon.LogPath(dir))
		return nil
	}

	if daemon.IsDaemonChild() {
		cfg.Log.Output = daemon.LogPath(dir)
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	client, err := newForgeClient(cfg)
	if err != nil {
		return err
	}

	if err := daemon.WritePIDFile(daemon.PIDPath(dir)); err != nil {
		return err
	}
	defer daemon.RemovePIDFile(daemon.PIDPath(dir))
	daemon.ClearStopRequest(dir)

	loop, closeAll, err := buildLoop(cfg, client, dir)
	if err != nil {
		return err
	}
	defer closeAll()

	return loop.Run(cmd.Context())
}

// buildLoop wires the control loop from configuration.
func buildLoop(cfg *config.Config, client *github.Client, dir string) (*workflow.Loop, func(), error) {
	lockDir := daemon.LockDir(dir)
	sessions := session.NewManager(tmux.NewClient(), lockDir, cfg.Workflow.MaxPanes)
	executor := workflow.NewExecutor(cfg, sessions)

	var notifier workflow.Notifier
	if cfg.Slack != nil && cfg.Slack.Enabled && cfg.Slack.WebhookURL != "" {
		notifier = notify.NewSlack(cfg.Slack.WebhookURL)
	}

	store, err := history.Open(daemon.HistoryPath(dir))
	closeAll := func() {}
	var recorder workflow.TransitionRecorder
	if err != nil {
		logging.WithComponent("main").Warn("history store unavailable", "error", err)
	} else {
		recorder = store
		closeAll = func() { _ = store.Close() }
	}

	queueing := workflow.NewQueueing(client)
	processor := workflow.NewProcessor(cfg, client, executor, notifier, recorder, lockDir)
	merger := workflow.NewAutoMerger(client, notifier)
	cleaner := workflow.NewCleaner(client, sessions,
		time.Duration(cfg.Workflow.CleanupInterval)*time.Second)

	mode := workflow.ModeTmux
	if !cfg.Workflow.UseTmux || !tmux.Installed() {
		mode = workflow.ModeDirect
	}

	loop := workflow.NewLoop(cfg, client, queueing, processor, merger, cleaner, notifier, dir, mode)
	return loop, closeAll, nil
}

// runOneShot processes a single issue immediately, outside the loop. A todo
// issue takes the legacy direct edge into planning; anything else goes
// through the normal phase determination.
func runOneShot(cmd *cobra.Command, cfg *config.Config, dir string, number int) error {
	if err := initLogging(cfg); err != nil {
		return err
	}
	client, err := newForgeClient(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	issue, err := client.GetIssue(ctx, number)
	if err != nil {
		return err
	}

	lockDir := daemon.LockDir(dir)
	sessions := session.NewManager(tmux.NewClient(), lockDir, cfg.Workflow.MaxPanes)
	executor := workflow.NewExecutor(cfg, sessions)

	if issue.HasLabel(workflow.LabelTodo) {
		// Developer path: skip the queue and go straight to planning.
		labels := replaceLabel(issue.LabelNames(), workflow.LabelTodo, workflow.LabelPlanning)
		if err := client.UpdateLabels(ctx, number, labels); err != nil {
			return err
		}
		result, err := executor.Execute(ctx, &workflow.PhaseQueuedToPlanning, number)
		if err != nil {
			return err
		}
		fmt.Printf("Planning started for issue #%d (mode %s)\n", number, result.Mode)
		return nil
	}

	processor := workflow.NewProcessor(cfg, client, executor, nil, nil, lockDir)
	result, err := processor.Process(ctx, issue)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Printf("Issue #%d skipped: %s\n", number, result.Reason)
		return nil
	}
	fmt.Printf("Phase %s started for issue #%d\n", result.Phase, number)
	return nil
}

func replaceLabel(labels []string, from, to string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l != from {
			out = append(out, l)
		}
	}
	return append(out, to)
}
