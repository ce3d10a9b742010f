// Package config loads and validates the soba configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/douhashi/soba/internal/logging"
)

// Auth methods for the GitHub client.
const (
	AuthMethodGH   = "gh"
	AuthMethodEnv  = "env"
	AuthMethodAuto = "" // gh first, then env
)

// Config is the immutable daemon configuration. It is loaded once at startup
// and passed by value to the components that need it; nothing reconfigures a
// running daemon.
type Config struct {
	GitHub   *GitHubConfig   `yaml:"github"`
	Workflow *WorkflowConfig `yaml:"workflow"`
	Phase    *PhaseConfig    `yaml:"phase"`
	Slack    *SlackConfig    `yaml:"slack"`
	Log      *logging.Config `yaml:"log"`
}

// GitHubConfig holds forge connection settings.
type GitHubConfig struct {
	// AuthMethod is "gh", "env", or empty for auto (gh first, then env).
	AuthMethod string `yaml:"auth_method"`
	// Repository is the "owner/name" slug. Required.
	Repository string `yaml:"repository"`
}

// WorkflowConfig holds control-loop settings.
type WorkflowConfig struct {
	// Interval is the poll interval in seconds (>= 1).
	Interval int `yaml:"interval"`
	// UseTmux launches phase commands inside tmux panes when true.
	UseTmux bool `yaml:"use_tmux"`
	// AutoMerge enables the lgtm-labeled PR merge sweep.
	AutoMerge bool `yaml:"auto_merge"`
	// CleanupEnabled enables deletion of tmux windows for closed issues.
	CleanupEnabled bool `yaml:"cleanup_enabled"`
	// CleanupInterval is the cleaner cadence in seconds.
	CleanupInterval int `yaml:"cleanup_interval"`
	// CommandDelay is the pause in seconds between pane creation and
	// key injection, giving the shell time to initialize.
	CommandDelay int `yaml:"command_delay"`
	// MaxPanes caps panes per issue window; oldest panes are evicted first.
	MaxPanes int `yaml:"max_panes"`
}

// PhaseConfig holds the external command for each workflow phase.
type PhaseConfig struct {
	Plan      *PhaseCommand `yaml:"plan"`
	Implement *PhaseCommand `yaml:"implement"`
	Review    *PhaseCommand `yaml:"review"`
	Revise    *PhaseCommand `yaml:"revise"`
}

// PhaseCommand describes how to launch the external AI assistant for a phase.
type PhaseCommand struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// Parameter supports the {{issue-number}} placeholder.
	Parameter string `yaml:"parameter"`
}

// SlackConfig holds notification settings.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GitHub: &GitHubConfig{
			AuthMethod: AuthMethodAuto,
		},
		Workflow: &WorkflowConfig{
			Interval:        20,
			UseTmux:         true,
			AutoMerge:       true,
			CleanupEnabled:  true,
			CleanupInterval: 300,
			CommandDelay:    3,
			MaxPanes:        3,
		},
		Phase: &PhaseConfig{
			Plan: &PhaseCommand{
				Command:   "claude",
				Args:      []string{"--dangerously-skip-permissions"},
				Parameter: "/soba:plan {{issue-number}}",
			},
			Implement: &PhaseCommand{
				Command:   "claude",
				Args:      []string{"--dangerously-skip-permissions"},
				Parameter: "/soba:implement {{issue-number}}",
			},
			Review: &PhaseCommand{
				Command:   "claude",
				Args:      []string{"--dangerously-skip-permissions"},
				Parameter: "/soba:review {{issue-number}}",
			},
			Revise: &PhaseCommand{
				Command:   "claude",
				Args:      []string{"--dangerously-skip-permissions"},
				Parameter: "/soba:revise {{issue-number}}",
			},
		},
		Slack: &SlackConfig{
			Enabled: false,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file, expanding ${VAR} references from the
// environment before parsing. Missing file returns defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// Save writes configuration to a file, creating parent directories.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.GitHub == nil || c.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is required")
	}
	parts := strings.Split(c.GitHub.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("github.repository must be owner/name, got %q", c.GitHub.Repository)
	}
	switch c.GitHub.AuthMethod {
	case AuthMethodGH, AuthMethodEnv, AuthMethodAuto:
	default:
		return fmt.Errorf("github.auth_method must be %q or %q, got %q",
			AuthMethodGH, AuthMethodEnv, c.GitHub.AuthMethod)
	}
	if c.Workflow != nil && c.Workflow.Interval < 1 {
		return fmt.Errorf("workflow.interval must be >= 1 second, got %d", c.Workflow.Interval)
	}
	return nil
}

// PhaseCommandFor returns the configured command for a phase key, or nil if
// the phase has no command (label transition only).
func (c *Config) PhaseCommandFor(key string) *PhaseCommand {
	if c.Phase == nil {
		return nil
	}
	switch key {
	case "plan":
		return c.Phase.Plan
	case "implement":
		return c.Phase.Implement
	case "review":
		return c.Phase.Review
	case "revise":
		return c.Phase.Revise
	}
	return nil
}

// Owner returns the repository owner part of the slug.
func (c *Config) Owner() string {
	parts := strings.SplitN(c.GitHub.Repository, "/", 2)
	return parts[0]
}

// Repo returns the repository name part of the slug.
func (c *Config) Repo() string {
	parts := strings.SplitN(c.GitHub.Repository, "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
