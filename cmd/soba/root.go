package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/logging"
)

var version = "dev"

var stateDirFlag string

var rootCmd = &cobra.Command{
	Use:     "soba",
	Short:   "Autonomous GitHub issue workflow orchestrator",
	Long:    "soba polls GitHub issues and drives them through plan, implement,\nreview, and revise phases via workflow labels, launching an AI\nassistant in tmux panes for each phase.",
	Version: version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "state directory (default: ./.soba or ~/.soba)")
}

// stateDir resolves the effective state directory for this invocation.
func stateDir() string {
	if stateDirFlag != "" {
		return stateDirFlag
	}
	return daemon.StateDir()
}

// loadConfig loads and validates the configuration from the state dir.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(daemon.ConfigPath(stateDir()))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (run `soba init` first): %w", err)
	}
	return cfg, nil
}

// newForgeClient builds an authenticated GitHub client from config.
func newForgeClient(cfg *config.Config) (*github.Client, error) {
	token, err := github.ResolveToken(cfg.GitHub.AuthMethod)
	if err != nil {
		return nil, err
	}
	return github.NewClient(token, cfg.Owner(), cfg.Repo()), nil
}

// initLogging applies the configured log settings.
func initLogging(cfg *config.Config) error {
	return logging.Init(cfg.Log)
}
