package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/daemon"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(daemon.ConfigPath(stateDir()))
		if err != nil {
			return err
		}
		redact(cfg)
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// redact masks secrets so config output is safe to paste into issues.
func redact(cfg *config.Config) {
	if cfg.Slack != nil && cfg.Slack.WebhookURL != "" {
		cfg.Slack.WebhookURL = mask(cfg.Slack.WebhookURL)
	}
}

func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:8] + strings.Repeat("*", 8)
}
