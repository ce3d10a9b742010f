package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/workflow"
)

var initInteractive bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration and create workflow labels",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initInteractive, "interactive", false, "prompt for repository and auth method")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := stateDir()
	if err := daemon.EnsureStateDir(dir); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	cfgPath := daemon.ConfigPath(dir)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if initInteractive {
		if err := promptConfig(cfg); err != nil {
			return err
		}
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) || initInteractive {
		if err := config.Save(cfg, cfgPath); err != nil {
			return err
		}
		fmt.Println("Wrote configuration to", cfgPath)
	} else {
		fmt.Println("Configuration already exists at", cfgPath)
	}

	if cfg.GitHub == nil || cfg.GitHub.Repository == "" {
		fmt.Println("Set github.repository in the config, then rerun `soba init` to create labels.")
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := newForgeClient(cfg)
	if err != nil {
		return err
	}
	if err := ensureLabels(cmd, client); err != nil {
		return err
	}
	fmt.Println("Workflow labels ready on", cfg.GitHub.Repository)
	return nil
}

// ensureLabels creates every workflow label, tolerating ones that exist.
func ensureLabels(cmd *cobra.Command, client *github.Client) error {
	for _, def := range workflow.LabelDefinitions {
		if err := client.CreateLabel(cmd.Context(), def.Name, def.Color, def.Description); err != nil {
			return fmt.Errorf("failed to create label %s: %w", def.Name, err)
		}
	}
	return nil
}

func promptConfig(cfg *config.Config) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Repository (owner/name): ")
	repo, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	if repo = strings.TrimSpace(repo); repo != "" {
		cfg.GitHub.Repository = repo
	}

	fmt.Print("Auth method (gh/env, empty for auto): ")
	method, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	cfg.GitHub.AuthMethod = strings.TrimSpace(method)
	return nil
}
