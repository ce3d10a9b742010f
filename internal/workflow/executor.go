package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/douhashi/soba/internal/config"
	"github.com/douhashi/soba/internal/logging"
	"github.com/douhashi/soba/internal/session"
	"github.com/douhashi/soba/internal/tmux"
)

// Run modes for phase commands.
const (
	ModeTmux   = "tmux"
	ModeDirect = "direct"
)

// issueNumberPlaceholder is substituted literally in parameter templates.
const issueNumberPlaceholder = "{{issue-number}}"

// ExecResult describes one phase command launch.
type ExecResult struct {
	ExecutionID string `json:"execution_id"`
	Mode        string `json:"mode"`
	// Multiplexer mode coordinates for status display.
	Session string `json:"session,omitempty"`
	Window  string `json:"window,omitempty"`
	Pane    string `json:"pane,omitempty"`
	// Direct mode outcome.
	ExitCode int    `json:"exit_code,omitempty"`
	Output   string `json:"output,omitempty"`
}

// Executor launches the external AI assistant for a phase, either into a
// tmux pane (fire-and-forget; the agent signals completion by re-labeling
// the issue) or as a direct subprocess with captured output.
type Executor struct {
	cfg      *config.Config
	sessions *session.Manager
	// sleep is swapped out in tests to skip the startup delay.
	sleep func(time.Duration)
	log   *slog.Logger
}

// NewExecutor creates a phase executor.
func NewExecutor(cfg *config.Config, sessions *session.Manager) *Executor {
	return &Executor{
		cfg:      cfg,
		sessions: sessions,
		sleep:    time.Sleep,
		log:      logging.WithComponent("executor"),
	}
}

// Execute launches the configured command for a phase against an issue.
// Tmux mode downgrades to direct execution when the binary is missing.
func (e *Executor) Execute(ctx context.Context, phase *Phase, issueNumber int) (*ExecResult, error) {
	cmd := e.cfg.PhaseCommandFor(phase.CommandKey)
	if cmd == nil {
		return nil, fmt.Errorf("phase %s has no configured command", phase.Name)
	}

	argv := assembleArgv(cmd, issueNumber)
	executionID := uuid.NewString()
	log := e.log.With("issue", issueNumber, "phase", phase.Name, "execution_id", executionID)

	if e.cfg.Workflow.UseTmux {
		if tmux.Installed() {
			return e.executeInTmux(log, argv, issueNumber, executionID)
		}
		log.Warn("tmux not installed, falling back to direct mode")
	}
	return e.executeDirect(ctx, log, argv, executionID)
}

// assembleArgv expands the parameter template into the final command line.
func assembleArgv(cmd *config.PhaseCommand, issueNumber int) []string {
	argv := append([]string{cmd.Command}, cmd.Args...)
	if cmd.Parameter != "" {
		param := strings.ReplaceAll(cmd.Parameter, issueNumberPlaceholder, strconv.Itoa(issueNumber))
		argv = append(argv, param)
	}
	return argv
}

func (e *Executor) executeInTmux(log *slog.Logger, argv []string, issueNumber int, executionID string) (*ExecResult, error) {
	sess, err := e.sessions.FindOrCreateSession(e.cfg.GitHub.Repository)
	if err != nil {
		return nil, err
	}
	window, err := e.sessions.FindOrCreateIssueWindow(sess, issueNumber)
	if err != nil {
		return nil, err
	}
	pane, err := e.sessions.CreatePhasePane(window)
	if err != nil {
		return nil, err
	}

	// Give the shell in the new pane time to initialize before typing.
	delay := time.Duration(e.cfg.Workflow.CommandDelay) * time.Second
	if delay > 0 {
		e.sleep(delay)
	}

	command := shellJoin(argv)
	if err := e.sessions.SendKeys(pane, command); err != nil {
		return nil, fmt.Errorf("failed to send command to pane %s: %w", pane, err)
	}

	log.Info("phase command launched", "mode", ModeTmux, "session", sess, "window", window, "pane", pane)
	return &ExecResult{
		ExecutionID: executionID,
		Mode:        ModeTmux,
		Session:     sess,
		Window:      window,
		Pane:        pane,
	}, nil
}

func (e *Executor) executeDirect(ctx context.Context, log *slog.Logger, argv []string, executionID string) (*ExecResult, error) {
	log.Info("phase command launched", "mode", ModeDirect, "command", argv[0])

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	result := &ExecResult{
		ExecutionID: executionID,
		Mode:        ModeDirect,
		Output:      string(out),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			log.Warn("phase command exited nonzero", "exit_code", result.ExitCode)
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return result, nil
}

// shellJoin quotes argv members that contain whitespace before joining.
func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t") {
			parts[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
